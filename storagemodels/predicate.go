/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/remotestore/errors"
)

var attributePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// JSONTagEncoding makes attributevalue use `json` struct tags, so attribute
// names match payload keys across every backend.
func JSONTagEncoding(o *attributevalue.EncoderOptions) {
	o.TagKey = "json"
}

// JSONTagDecoding is the decoding counterpart of JSONTagEncoding.
func JSONTagDecoding(o *attributevalue.DecoderOptions) {
	o.TagKey = "json"
}

// Predicate selects entities whose Attribute equals Value.
// Attribute is the `json` tag name of the field.
type Predicate struct {
	Attribute string
	Value     any
}

// RemoteIDEquals selects the entity with the given remote identifier.
func RemoteIDEquals(remoteID string) Predicate {
	return Predicate{Attribute: AttrRemoteID, Value: remoteID}
}

// AttributeEquals selects entities whose attribute equals value.
func AttributeEquals(attribute string, value any) Predicate {
	return Predicate{Attribute: attribute, Value: value}
}

// IsRemoteID reports whether the predicate is a remote identifier lookup.
func (p Predicate) IsRemoteID() bool {
	return p.Attribute == AttrRemoteID
}

// Validate checks that the attribute name is usable by every backend.
func (p Predicate) Validate() error {
	if !attributePattern.MatchString(p.Attribute) {
		return errors.NewValidationError("attribute", fmt.Sprintf("%q is not a valid attribute name", p.Attribute))
	}
	return nil
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s == %v", p.Attribute, p.Value)
}

// Matches reports whether entity satisfies the predicate. Both sides are
// converted to DynamoDB attribute values first so that numbers compare by
// value and times compare in their stored form.
func (p Predicate) Matches(entity any) (bool, error) {
	item, err := attributevalue.MarshalMapWithOptions(entity, JSONTagEncoding)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entity: %w", err)
	}
	got, ok := item[p.Attribute]
	if !ok {
		return p.Value == nil, nil
	}
	want, err := attributevalue.MarshalWithOptions(p.Value, JSONTagEncoding)
	if err != nil {
		return false, fmt.Errorf("failed to marshal predicate value: %w", err)
	}
	return attributeEqual(got, want), nil
}

func attributeEqual(a, b types.AttributeValue) bool {
	if an, ok := a.(*types.AttributeValueMemberN); ok {
		bn, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		if an.Value == bn.Value {
			return true
		}
		af, errA := strconv.ParseFloat(an.Value, 64)
		bf, errB := strconv.ParseFloat(bn.Value, 64)
		return errA == nil && errB == nil && af == bf
	}
	return reflect.DeepEqual(a, b)
}
