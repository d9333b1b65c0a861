/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/remotestore/datastore"
	storeerrors "github.com/suparena/remotestore/errors"
	"github.com/suparena/remotestore/registry"
	"github.com/suparena/remotestore/storagemodels"
)

// EntityTypeAttribute is injected into every item so that items of different
// types can share one table.
const EntityTypeAttribute = "EntityType"

// Client is the subset of the DynamoDB API the datastore uses.
// *dynamodb.Client satisfies it.
type Client interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// ClientOptions configures NewDynamoDBClient. Empty credentials fall back to
// the default AWS credential chain.
type ClientOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service endpoint (e.g. DynamoDB Local).
	Endpoint string
}

// NewDynamoDBClient initializes a DynamoDB client.
func NewDynamoDBClient(ctx context.Context, opts ClientOptions) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" || opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// DynamodbDataStore implements datastore.DataStore[T] on a single DynamoDB
// table shared by several entity types.
type DynamodbDataStore[T any] struct {
	client     Client
	tableName  string
	entityType registry.EntityType
	streamOpts []storagemodels.StreamOption
}

var _ datastore.DataStore[struct{}] = (*DynamodbDataStore[struct{}])(nil)

// NewDynamodbDataStore constructs a new DynamodbDataStore for type T.
// streamOpts tune the paged reads behind FindFirst and FindAll.
func NewDynamodbDataStore[T any](client Client, tableName string, entityType registry.EntityType, streamOpts ...storagemodels.StreamOption) (*DynamodbDataStore[T], error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if tableName == "" {
		return nil, errors.New("table name is required")
	}
	if err := entityType.Validate(); err != nil {
		return nil, err
	}
	for _, key := range []string{"PK", "SK"} {
		if _, ok := entityType.IndexMap[key]; !ok {
			return nil, fmt.Errorf("index map of %q has no %s template", entityType.Name, key)
		}
	}
	return &DynamodbDataStore[T]{
		client:     client,
		tableName:  tableName,
		entityType: entityType,
		streamOpts: streamOpts,
	}, nil
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills the templates of indexMap with attribute values of av.
// Keys whose template references a missing or empty attribute are reported
// in incomplete.
func expandMacros(indexMap map[string]string, av map[string]types.AttributeValue) (expanded map[string]string, incomplete map[string]bool) {
	expanded = make(map[string]string, len(indexMap))
	incomplete = make(map[string]bool)

	for fieldName, template := range indexMap {
		expanded[fieldName] = macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			key := strings.Trim(macro, "{}")
			value := attributeString(av[key])
			if value == "" {
				incomplete[fieldName] = true
			}
			return value
		})
	}
	return expanded, incomplete
}

// attributeString converts scalar attribute values into their key form.
func attributeString(val types.AttributeValue) string {
	switch tv := val.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value
	case *types.AttributeValueMemberN:
		return tv.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value)
	default:
		// NULL, binary, sets, lists and maps cannot be part of a key
		return ""
	}
}

// keyFor builds the primary key of the item with the given object id.
func (d *DynamodbDataStore[T]) keyFor(objectID string) (map[string]types.AttributeValue, error) {
	expanded, incomplete := expandMacros(map[string]string{
		"PK": d.entityType.IndexMap["PK"],
		"SK": d.entityType.IndexMap["SK"],
	}, map[string]types.AttributeValue{
		storagemodels.AttrObjectID: &types.AttributeValueMemberS{Value: objectID},
	})
	if incomplete["PK"] || incomplete["SK"] {
		return nil, storeerrors.NewValidationError(storagemodels.AttrObjectID, "primary key templates may only reference object_id")
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: expanded["PK"]},
		"SK": &types.AttributeValueMemberS{Value: expanded["SK"]},
	}, nil
}

// GetOne retrieves the item with the given object id.
func (d *DynamodbDataStore[T]) GetOne(ctx context.Context, objectID string) (*T, error) {
	if objectID == "" {
		return nil, storeerrors.NewValidationError(storagemodels.AttrObjectID, "must not be empty")
	}
	key, err := d.keyFor(objectID)
	if err != nil {
		return nil, err
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, storeerrors.NewNotFoundError(d.entityType.Name, objectID)
	}

	result := new(T)
	if err := attributevalue.UnmarshalMapWithOptions(out.Item, result, storagemodels.JSONTagDecoding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return result, nil
}

// Put stores the entity, expanding the index map templates into key
// attributes. Secondary index keys whose templates cannot be filled (such as
// the remote id index for local-only entities) are left out of the item.
func (d *DynamodbDataStore[T]) Put(ctx context.Context, entity T) error {
	av, err := attributevalue.MarshalMapWithOptions(&entity, storagemodels.JSONTagEncoding)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	expanded, incomplete := expandMacros(d.entityType.IndexMap, av)
	if incomplete["PK"] || incomplete["SK"] {
		return storeerrors.NewValidationError(storagemodels.AttrObjectID, "must not be empty")
	}
	for k, v := range expanded {
		if incomplete[k] {
			continue
		}
		av[k] = &types.AttributeValueMemberS{Value: v}
	}
	av[EntityTypeAttribute] = &types.AttributeValueMemberS{Value: d.entityType.Name}

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Delete removes the item with the given object id.
func (d *DynamodbDataStore[T]) Delete(ctx context.Context, objectID string) error {
	key, err := d.keyFor(objectID)
	if err != nil {
		return err
	}

	_, err = d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:           &d.tableName,
		Key:                 key,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return storeerrors.NewNotFoundError(d.entityType.Name, objectID)
		}
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}
