/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	storeerrors "github.com/suparena/remotestore/errors"
	"github.com/suparena/remotestore/storagemodels"
)

// FindFirst returns the first item matching pred. Remote id lookups query
// the remote id index when the index map defines one; everything else is a
// filtered scan, so "first" follows DynamoDB's read order.
func (d *DynamodbDataStore[T]) FindFirst(ctx context.Context, pred storagemodels.Predicate) (*T, error) {
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	params, err := d.remoteIDQuery(pred)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params, err = d.attributeScan(pred)
		if err != nil {
			return nil, err
		}
	}

	item, err := d.first(ctx, params)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, storeerrors.NewNotFoundError(d.entityType.Name, pred.String())
	}
	return item, nil
}

// FindAll returns every item of the store's entity type.
func (d *DynamodbDataStore[T]) FindAll(ctx context.Context) ([]T, error) {
	params := d.entityTypeScan()

	results := make([]T, 0)
	for res := range d.Stream(ctx, params, strictRead) {
		if res.Error != nil {
			return nil, res.Error
		}
		results = append(results, res.Item)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// remoteIDQuery builds the index query for a remote id predicate. It returns
// nil params when the predicate or the index map does not allow it.
func (d *DynamodbDataStore[T]) remoteIDQuery(pred storagemodels.Predicate) (*storagemodels.QueryParams, error) {
	if !pred.IsRemoteID() {
		return nil, nil
	}
	gsi := RemoteIDIndex
	template, ok := remoteIDTemplate(d.entityType.IndexMap)
	if !ok {
		return nil, nil
	}

	av, err := attributevalue.MarshalWithOptions(pred.Value, storagemodels.JSONTagEncoding)
	if err != nil {
		return nil, storeerrors.NewValidationError("value", err.Error())
	}
	expanded, incomplete := expandMacros(
		map[string]string{gsi.PartitionKeyName: template},
		map[string]types.AttributeValue{storagemodels.AttrRemoteID: av},
	)
	if incomplete[gsi.PartitionKeyName] {
		// the index is sparse, so a key it cannot hold matches nothing
		return nil, storeerrors.NewValidationError(storagemodels.AttrRemoteID, "must not be empty")
	}

	return &storagemodels.QueryParams{
		IndexName:                aws.String(gsi.IndexName),
		KeyConditionExpression:   "#pk = :pk",
		ExpressionAttributeNames: map[string]string{"#pk": gsi.PartitionKeyName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: expanded[gsi.PartitionKeyName]},
		},
	}, nil
}

// attributeScan builds a filtered scan comparing one attribute. A nil value
// also matches items without the attribute.
func (d *DynamodbDataStore[T]) attributeScan(pred storagemodels.Predicate) (*storagemodels.QueryParams, error) {
	av, err := attributevalue.MarshalWithOptions(pred.Value, storagemodels.JSONTagEncoding)
	if err != nil {
		return nil, storeerrors.NewValidationError("value", err.Error())
	}

	params := d.entityTypeScan()
	params.ExpressionAttributeNames["#a"] = pred.Attribute
	params.ExpressionAttributeValues[":v"] = av

	condition := "#a = :v"
	if pred.Value == nil {
		condition = "(attribute_not_exists(#a) OR #a = :v)"
	}
	params.FilterExpression = aws.String(*params.FilterExpression + " AND " + condition)
	return params, nil
}

func (d *DynamodbDataStore[T]) entityTypeScan() *storagemodels.QueryParams {
	return &storagemodels.QueryParams{
		TableName:                d.tableName,
		FilterExpression:         aws.String("#et = :et"),
		ExpressionAttributeNames: map[string]string{"#et": EntityTypeAttribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":et": &types.AttributeValueMemberS{Value: d.entityType.Name},
		},
	}
}

// strictRead drops any tolerant error handler. FindFirst and FindAll must
// fail on a page they could not read: a truncated result would look like a
// missing record.
func strictRead(o *storagemodels.StreamOptions) {
	o.ErrorHandler = nil
}

// first returns the first item streamed for params, or nil when there is none.
func (d *DynamodbDataStore[T]) first(ctx context.Context, params *storagemodels.QueryParams) (*T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for res := range d.Stream(ctx, params, strictRead) {
		if res.Error != nil {
			return nil, fmt.Errorf("find %s: %w", d.entityType.Name, res.Error)
		}
		item := res.Item
		return &item, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
