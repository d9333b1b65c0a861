/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storeerrors "github.com/suparena/remotestore/errors"
	"github.com/suparena/remotestore/registry"
	"github.com/suparena/remotestore/storagemodels"
)

type post struct {
	storagemodels.RemoteFields
	Title string  `json:"title"`
	Views int     `json:"views"`
	Tag   *string `json:"tag,omitempty"`
}

func newPost(objectID, remoteID, title string) post {
	return post{
		RemoteFields: storagemodels.RemoteFields{ObjectID: objectID, RemoteID: remoteID},
		Title:        title,
	}
}

func newTestStore(t *testing.T, client *fakeClient, name string, opts ...storagemodels.StreamOption) *DynamodbDataStore[post] {
	t.Helper()
	opts = append([]storagemodels.StreamOption{storagemodels.WithRetryBackoff(time.Millisecond)}, opts...)
	store, err := NewDynamodbDataStore[post](client, "remotestore", registry.NewEntityType(name), opts...)
	require.NoError(t, err)
	return store
}

func TestNewDynamodbDataStoreValidation(t *testing.T) {
	client := &fakeClient{}

	_, err := NewDynamodbDataStore[post](nil, "table", registry.NewEntityType("Post"))
	assert.Error(t, err)

	_, err = NewDynamodbDataStore[post](client, "", registry.NewEntityType("Post"))
	assert.Error(t, err)

	_, err = NewDynamodbDataStore[post](client, "table", registry.EntityType{Name: "Po#st"})
	assert.Error(t, err)

	_, err = NewDynamodbDataStore[post](client, "table", registry.EntityType{
		Name:     "Post",
		IndexMap: map[string]string{"PK": "Post#{object_id}"},
	})
	assert.Error(t, err, "SK template is required")
}

func TestExpandMacros(t *testing.T) {
	av := map[string]types.AttributeValue{
		"object_id": &types.AttributeValueMemberS{Value: "o1"},
		"views":     &types.AttributeValueMemberN{Value: "12"},
	}
	expanded, incomplete := expandMacros(map[string]string{
		"PK":  "Post#{object_id}",
		"SK":  "Post#{views}",
		"PK1": "Post#REMOTE#{remote_id}",
		"SK1": "Post",
	}, av)

	assert.Equal(t, "Post#o1", expanded["PK"])
	assert.Equal(t, "Post#12", expanded["SK"])
	assert.Equal(t, "Post", expanded["SK1"])
	assert.True(t, incomplete["PK1"])
	assert.False(t, incomplete["PK"])
	assert.False(t, incomplete["SK1"])
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	store := newTestStore(t, client, "Post")

	p := newPost("o1", "42", "Hello")
	p.Views = 3
	require.NoError(t, store.Put(ctx, p))

	require.Len(t, client.items, 1)
	item := client.items[0]
	assert.Equal(t, "Post#o1", attributeString(item["PK"]))
	assert.Equal(t, "Post#o1", attributeString(item["SK"]))
	assert.Equal(t, "Post#REMOTE#42", attributeString(item["PK1"]))
	assert.Equal(t, "Post", attributeString(item["SK1"]))
	assert.Equal(t, "Post", attributeString(item[EntityTypeAttribute]))
	assert.Equal(t, "Hello", attributeString(item["title"]))

	got, err := store.GetOne(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "42", got.RemoteID)
	assert.Equal(t, 3, got.Views)

	require.NoError(t, store.Delete(ctx, "o1"))
	_, err = store.GetOne(ctx, "o1")
	assert.True(t, storeerrors.IsNotFound(err))
	assert.True(t, storeerrors.IsNotFound(store.Delete(ctx, "o1")))
}

func TestPutLocalOnlyOmitsRemoteIndex(t *testing.T) {
	client := &fakeClient{}
	store := newTestStore(t, client, "Post")

	require.NoError(t, store.Put(context.Background(), newPost("o1", "", "Draft")))

	item := client.items[0]
	assert.Contains(t, item, "PK")
	assert.NotContains(t, item, "PK1")
	assert.Contains(t, item, "SK1")
}

func TestPutRequiresObjectID(t *testing.T) {
	store := newTestStore(t, &fakeClient{}, "Post")
	err := store.Put(context.Background(), newPost("", "1", "orphan"))
	assert.True(t, storeerrors.IsValidationError(err))
	assert.True(t, storeerrors.IsValidationError(func() error { _, err := store.GetOne(context.Background(), ""); return err }()))
}

func TestFindFirst(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	posts := newTestStore(t, client, "Post")
	pages := newTestStore(t, client, "Page")

	tag := "go"
	first := newPost("o1", "1", "First")
	first.Tag = &tag
	first.Views = 7
	second := newPost("o2", "2", "Second")
	second.Tag = &tag
	third := newPost("o3", "", "Untagged")

	require.NoError(t, pages.Put(ctx, newPost("p1", "2", "Second")))
	for _, p := range []post{first, second, third} {
		require.NoError(t, posts.Put(ctx, p))
	}

	t.Run("remote id uses the index", func(t *testing.T) {
		got, err := posts.FindFirst(ctx, storagemodels.RemoteIDEquals("2"))
		require.NoError(t, err)
		assert.Equal(t, "o2", got.ObjectID)
		assert.Equal(t, RemoteIDIndex.IndexName, client.queries[len(client.queries)-1])
	})

	t.Run("string attribute", func(t *testing.T) {
		got, err := posts.FindFirst(ctx, storagemodels.AttributeEquals("tag", "go"))
		require.NoError(t, err)
		assert.Equal(t, "o1", got.ObjectID)
	})

	t.Run("numeric attribute", func(t *testing.T) {
		got, err := posts.FindFirst(ctx, storagemodels.AttributeEquals("views", 7.0))
		require.NoError(t, err)
		assert.Equal(t, "o1", got.ObjectID)
	})

	t.Run("scoped to entity type", func(t *testing.T) {
		got, err := posts.FindFirst(ctx, storagemodels.AttributeEquals("title", "Second"))
		require.NoError(t, err)
		assert.Equal(t, "o2", got.ObjectID)
	})

	t.Run("missing attribute", func(t *testing.T) {
		got, err := posts.FindFirst(ctx, storagemodels.AttributeEquals("tag", nil))
		require.NoError(t, err)
		assert.Equal(t, "o3", got.ObjectID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := posts.FindFirst(ctx, storagemodels.RemoteIDEquals("99"))
		assert.True(t, storeerrors.IsNotFound(err))

		_, err = posts.FindFirst(ctx, storagemodels.AttributeEquals("title", "nope"))
		assert.True(t, storeerrors.IsNotFound(err))
	})

	t.Run("invalid attribute", func(t *testing.T) {
		_, err := posts.FindFirst(ctx, storagemodels.AttributeEquals("a b", "x"))
		assert.True(t, storeerrors.IsValidationError(err))
	})
}

func TestFindAllPagesAndScopes(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}

	var progress []storagemodels.StreamProgress
	posts := newTestStore(t, client, "Post",
		storagemodels.WithPageSize(2),
		storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			progress = append(progress, p)
		}),
	)
	pages := newTestStore(t, client, "Page")

	all, err := posts.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	for i := 1; i <= 5; i++ {
		require.NoError(t, posts.Put(ctx, newPost(fmt.Sprintf("o%d", i), fmt.Sprint(i), fmt.Sprintf("Post %d", i))))
	}
	require.NoError(t, pages.Put(ctx, newPost("p1", "1", "About")))

	client.scans = 0
	progress = nil
	all, err = posts.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "o1", all[0].ObjectID)
	assert.Equal(t, "o5", all[4].ObjectID)
	assert.Equal(t, 3, client.scans, "six items in pages of two")

	require.NotEmpty(t, progress)
	final := progress[len(progress)-1]
	assert.Equal(t, int64(5), final.ItemsProcessed)
	assert.Equal(t, 3, final.PagesProcessed)

	others, err := pages.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "About", others[0].Title)
}

func TestStreamRetriesThrottling(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	store := newTestStore(t, client, "Post")
	require.NoError(t, store.Put(ctx, newPost("o1", "1", "One")))

	client.errs = []error{
		&types.ProvisionedThroughputExceededException{Message: aws.String("slow down")},
		fmt.Errorf("wrapped: %w", &types.RequestLimitExceeded{}),
	}
	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Empty(t, client.errs)
}

func TestStreamStopsOnPermanentError(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	store := newTestStore(t, client, "Post")
	require.NoError(t, store.Put(ctx, newPost("o1", "1", "One")))

	boom := errors.New("access denied")
	client.errs = []error{boom}
	_, err := store.FindAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestStreamGivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	store := newTestStore(t, client, "Post", storagemodels.WithMaxRetries(1))

	throttled := &types.InternalServerError{}
	client.errs = []error{throttled, throttled, throttled}
	_, err := store.FindAll(ctx)
	require.Error(t, err)
	var ise *types.InternalServerError
	assert.ErrorAs(t, err, &ise)
	assert.Len(t, client.errs, 1)
}

func TestStreamErrorHandlerEndsQuietly(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	var seen []error
	store := newTestStore(t, client, "Post", storagemodels.WithErrorHandler(func(err error) bool {
		seen = append(seen, err)
		return true
	}))
	require.NoError(t, store.Put(ctx, newPost("o1", "1", "One")))

	client.errs = []error{errors.New("denied")}
	var items int
	for res := range store.Stream(ctx, store.entityTypeScan()) {
		require.NoError(t, res.Error)
		items++
	}
	assert.Zero(t, items)
	assert.Len(t, seen, 1)
}

func TestFindIgnoresTolerantErrorHandler(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	store := newTestStore(t, client, "Post", storagemodels.WithErrorHandler(func(error) bool { return true }))
	require.NoError(t, store.Put(ctx, newPost("o1", "42", "One")))

	denied := errors.New("access denied")

	client.errs = []error{denied}
	_, err := store.FindAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)

	// a failed read is not a missing record
	client.errs = []error{denied}
	_, err = store.FindFirst(ctx, storagemodels.RemoteIDEquals("42"))
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.False(t, storeerrors.IsNotFound(err))

	client.errs = []error{denied}
	_, err = store.FindFirst(ctx, storagemodels.AttributeEquals("title", "One"))
	require.Error(t, err)
	assert.False(t, storeerrors.IsNotFound(err))

	found, err := store.FindFirst(ctx, storagemodels.RemoteIDEquals("42"))
	require.NoError(t, err)
	assert.Equal(t, "o1", found.ObjectID)
}

func TestStreamCancellation(t *testing.T) {
	client := &fakeClient{}
	store := newTestStore(t, client, "Post")
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Put(context.Background(), newPost(fmt.Sprintf("o%d", i), "", "x")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := store.Stream(ctx, store.entityTypeScan(), storagemodels.WithBufferSize(0))
	first := <-ch
	require.NoError(t, first.Error)
	cancel()

	// the channel must be closed once the worker observes cancellation
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(&types.ProvisionedThroughputExceededException{}))
	assert.True(t, isRetryableError(fmt.Errorf("op: %w", &types.InternalServerError{})))
	assert.False(t, isRetryableError(&types.ConditionalCheckFailedException{}))
	assert.False(t, isRetryableError(errors.New("plain")))
}
