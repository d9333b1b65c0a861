/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/remotestore/storagemodels"
)

// page is one page of a Query or Scan.
type page struct {
	items   []map[string]types.AttributeValue
	lastKey map[string]types.AttributeValue
}

// Stream reads the items selected by params page by page and delivers them on
// the returned channel, which is closed when the read ends. A params value
// without a key condition is executed as a Scan. The store's table name
// always wins over params.TableName.
func (d *DynamodbDataStore[T]) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.ApplyStreamOptions(append(append([]storagemodels.StreamOption{}, d.streamOpts...), opts...)...)
	if options.BufferSize < 0 {
		options.BufferSize = 0
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	go d.streamWorker(ctx, params, options, resultCh)
	return resultCh
}

func (d *DynamodbDataStore[T]) streamWorker(
	ctx context.Context,
	params *storagemodels.QueryParams,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[T],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	var nonFatal []error
	startTime := time.Now()

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: atomic.LoadInt64(&itemIndex),
			PagesProcessed: pageNumber,
			LastKey:        lastKey,
			Errors:         nonFatal,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(result storagemodels.StreamResult[T]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- result:
			return true
		}
	}

	lastKey := params.ExclusiveStartKey
	for {
		if ctx.Err() != nil {
			return
		}

		out, err := d.fetchWithRetry(ctx, params, lastKey, options)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// A failed page cannot be skipped; a tolerant error handler ends
			// the read without surfacing the error to the consumer.
			if options.ErrorHandler != nil && options.ErrorHandler(err) {
				nonFatal = append(nonFatal, err)
				reportProgress(lastKey)
				return
			}
			send(storagemodels.StreamResult[T]{
				Error: fmt.Errorf("read failed: %w", err),
				Meta: storagemodels.StreamMeta{
					Index:      atomic.LoadInt64(&itemIndex),
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			})
			return
		}

		pageNumber++
		for _, item := range out.items {
			result := d.processItem(item, atomic.LoadInt64(&itemIndex), pageNumber)
			atomic.AddInt64(&itemIndex, 1)
			if !send(result) {
				return
			}
			if result.Error != nil {
				nonFatal = append(nonFatal, result.Error)
			}
		}

		reportProgress(out.lastKey)
		if len(out.lastKey) == 0 {
			break
		}
		lastKey = out.lastKey
	}

	reportProgress(nil)
}

// fetchWithRetry reads one page, retrying throttling and server errors with
// linear backoff.
func (d *DynamodbDataStore[T]) fetchWithRetry(
	ctx context.Context,
	params *storagemodels.QueryParams,
	startKey map[string]types.AttributeValue,
	options storagemodels.StreamOptions,
) (*page, error) {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := d.fetchPage(ctx, params, startKey, options.PageSize)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}

		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("giving up after %d retries: %w", options.MaxRetries, lastErr)
}

func (d *DynamodbDataStore[T]) fetchPage(
	ctx context.Context,
	params *storagemodels.QueryParams,
	startKey map[string]types.AttributeValue,
	pageSize int32,
) (*page, error) {
	var limit *int32
	if pageSize > 0 {
		limit = aws.Int32(pageSize)
	}

	if params.IsScan() {
		out, err := d.client.Scan(ctx, &sdk.ScanInput{
			TableName:                 &d.tableName,
			FilterExpression:          params.FilterExpression,
			ExpressionAttributeNames:  params.ExpressionAttributeNames,
			ExpressionAttributeValues: params.ExpressionAttributeValues,
			IndexName:                 params.IndexName,
			ExclusiveStartKey:         startKey,
			Limit:                     limit,
		})
		if err != nil {
			return nil, err
		}
		return &page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	}

	out, err := d.client.Query(ctx, &sdk.QueryInput{
		TableName:                 &d.tableName,
		KeyConditionExpression:    aws.String(params.KeyConditionExpression),
		FilterExpression:          params.FilterExpression,
		ExpressionAttributeNames:  params.ExpressionAttributeNames,
		ExpressionAttributeValues: params.ExpressionAttributeValues,
		IndexName:                 params.IndexName,
		ExclusiveStartKey:         startKey,
		ScanIndexForward:          params.ScanIndexForward,
		Limit:                     limit,
	})
	if err != nil {
		return nil, err
	}
	return &page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
}

// processItem converts a DynamoDB item into a typed result. Items of another
// entity type are reported as item errors.
func (d *DynamodbDataStore[T]) processItem(item map[string]types.AttributeValue, index int64, pageNumber int) storagemodels.StreamResult[T] {
	meta := storagemodels.StreamMeta{
		Index:      index,
		PageNumber: pageNumber,
		Timestamp:  time.Now(),
	}

	rawCopy := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		rawCopy[k] = v
	}

	if attr, ok := item[EntityTypeAttribute]; ok {
		var entityType string
		if err := attributevalue.Unmarshal(attr, &entityType); err != nil {
			return storagemodels.StreamResult[T]{
				Error: fmt.Errorf("failed to unmarshal %s: %w", EntityTypeAttribute, err),
				Raw:   rawCopy,
				Meta:  meta,
			}
		}
		if entityType != d.entityType.Name {
			return storagemodels.StreamResult[T]{
				Error: fmt.Errorf("item has entity type %q, want %q", entityType, d.entityType.Name),
				Raw:   rawCopy,
				Meta:  meta,
			}
		}
	}

	var result T
	if err := attributevalue.UnmarshalMapWithOptions(item, &result, storagemodels.JSONTagDecoding); err != nil {
		return storagemodels.StreamResult[T]{
			Error: fmt.Errorf("failed to unmarshal item to type %T: %w", result, err),
			Raw:   rawCopy,
			Meta:  meta,
		}
	}
	return storagemodels.StreamResult[T]{Item: result, Raw: rawCopy, Meta: meta}
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	switch {
	case errors.As(err, &throughput), errors.As(err, &limit), errors.As(err, &internal):
		return true
	}

	var retryable interface{ RetryableError() bool }
	if errors.As(err, &retryable) {
		return retryable.RetryableError()
	}
	return false
}
