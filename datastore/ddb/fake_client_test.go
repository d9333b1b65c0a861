/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is an in-memory table that understands the key layout and the
// filter expressions the datastore generates.
type fakeClient struct {
	mu    sync.Mutex
	items []map[string]types.AttributeValue

	// errs are returned, in order, by the next Query or Scan calls.
	errs []error

	scans   int
	queries []string // index names
}

var _ Client = (*fakeClient)(nil)

func itemKey(item map[string]types.AttributeValue) string {
	return attributeString(item["PK"]) + "|" + attributeString(item["SK"])
}

func (f *fakeClient) indexOf(key map[string]types.AttributeValue) int {
	k := itemKey(key)
	for i, item := range f.items {
		if itemKey(item) == k {
			return i
		}
	}
	return -1
}

func (f *fakeClient) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOf(in.Key); i >= 0 {
		return &sdk.GetItemOutput{Item: f.items[i]}, nil
	}
	return &sdk.GetItemOutput{}, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOf(in.Item); i >= 0 {
		f.items[i] = in.Item
	} else {
		f.items = append(f.items, in.Item)
	}
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(in.Key)
	if i < 0 {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	index := ""
	if in.IndexName != nil {
		index = *in.IndexName
	}
	f.queries = append(f.queries, index)

	filter := *in.KeyConditionExpression
	if in.FilterExpression != nil {
		filter += " AND " + *in.FilterExpression
	}
	items, last := f.page(in.ExclusiveStartKey, in.Limit, filter, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	return &sdk.QueryOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (f *fakeClient) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	f.scans++

	filter := ""
	if in.FilterExpression != nil {
		filter = *in.FilterExpression
	}
	items, last := f.page(in.ExclusiveStartKey, in.Limit, filter, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	return &sdk.ScanOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (f *fakeClient) popErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

// page evaluates up to limit items after startKey and returns those passing
// the filter. Like DynamoDB, the limit applies before filtering.
func (f *fakeClient) page(
	startKey map[string]types.AttributeValue,
	limit *int32,
	filter string,
	names map[string]string,
	values map[string]types.AttributeValue,
) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	start := 0
	if len(startKey) > 0 {
		start = f.indexOf(startKey) + 1
	}
	end := len(f.items)
	if limit != nil && start+int(*limit) < end {
		end = start + int(*limit)
	}

	var out []map[string]types.AttributeValue
	for _, item := range f.items[start:end] {
		if evalFilter(filter, item, names, values) {
			out = append(out, item)
		}
	}

	var last map[string]types.AttributeValue
	if end < len(f.items) {
		evaluated := f.items[end-1]
		last = map[string]types.AttributeValue{"PK": evaluated["PK"], "SK": evaluated["SK"]}
	}
	return out, last
}

// evalFilter understands conjunctions of "#n = :v" clauses and the
// "(attribute_not_exists(#n) OR #n = :v)" form.
func evalFilter(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	if strings.TrimSpace(expr) == "" {
		return true
	}
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		if strings.HasPrefix(clause, "(") {
			alternatives := strings.Split(strings.Trim(clause, "()"), " OR ")
			matched := false
			for _, alt := range alternatives {
				if evalClause(alt+closeParen(alt), item, names, values) {
					matched = true
				}
			}
			if !matched {
				return false
			}
			continue
		}
		if !evalClause(clause, item, names, values) {
			return false
		}
	}
	return true
}

// closeParen restores the parenthesis trimmed from a function call clause.
func closeParen(clause string) string {
	if strings.Count(clause, "(") > strings.Count(clause, ")") {
		return ")"
	}
	return ""
}

func evalClause(clause string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	clause = strings.TrimSpace(clause)
	if strings.HasPrefix(clause, "attribute_not_exists(") {
		name := names[strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")")]
		_, exists := item[name]
		return !exists
	}
	parts := strings.SplitN(clause, " = ", 2)
	if len(parts) != 2 {
		panic(fmt.Sprintf("fake client cannot evaluate %q", clause))
	}
	name := names[strings.TrimSpace(parts[0])]
	want := values[strings.TrimSpace(parts[1])]
	got, ok := item[name]
	if !ok {
		return false
	}
	return sameValue(got, want)
}

func sameValue(a, b types.AttributeValue) bool {
	an, aok := a.(*types.AttributeValueMemberN)
	bn, bok := b.(*types.AttributeValueMemberN)
	if aok && bok {
		af, err1 := strconv.ParseFloat(an.Value, 64)
		bf, err2 := strconv.ParseFloat(bn.Value, 64)
		return err1 == nil && err2 == nil && af == bf
	}
	return reflect.DeepEqual(a, b)
}
