// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_storefront

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartlineai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-storefront"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

type mockRedisConnector struct {
	client *redis.Client
}

func (m *mockRedisConnector) Client() *redis.Client          { return m.client }
func (m *mockRedisConnector) Ping(ctx context.Context) error { return nil }
func (m *mockRedisConnector) Close() error                   { return nil }

func newMockStore(t *testing.T) (Store, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	return NewStore(&mockRedisConnector{client: client}, newTestLogger(t)), mock
}

func TestGetResolvesProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectHGetAll("store:+15559990000").SetVal(map[string]string{
		"store_name":           "Maple Outfitters",
		"store_details":        "Outdoor clothing, ships within 2 days.",
		"shopify_access_token": "shpat_test",
		"shopify_base_url":     "https://maple-outfitters.myshopify.com",
		"transfer_number":      "+15551234567",
	})

	profile, err := store.Get(context.Background(), "+15559990000")

	require.NoError(t, err)
	assert.Equal(t, "+15559990000", profile.Phone)
	assert.Equal(t, "Maple Outfitters", profile.StoreName)
	assert.Equal(t, "shpat_test", profile.ShopifyAccessToken)
	assert.Equal(t, "+15551234567", profile.TransferNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownStoreReturnsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectHGetAll("store:+10000000000").SetVal(map[string]string{})

	_, err := store.Get(context.Background(), "+10000000000")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPutWritesOrderedFields(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectHSet("store:+15559990000",
		"store_name", "Maple Outfitters",
		"store_details", "Outdoor clothing.",
		"shopify_access_token", "shpat_test",
		"shopify_base_url", "https://maple-outfitters.myshopify.com",
		"transfer_number", "+15551234567",
	).SetVal(5)

	err := store.Put(context.Background(), &Profile{
		Phone:              "+15559990000",
		StoreName:          "Maple Outfitters",
		StoreDetails:       "Outdoor clothing.",
		ShopifyAccessToken: "shpat_test",
		ShopifyBaseUrl:     "https://maple-outfitters.myshopify.com",
		TransferNumber:     "+15551234567",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutRequiresPhoneAndName(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Put(context.Background(), &Profile{StoreName: "No Phone"})
	require.Error(t, err)

	err = store.Put(context.Background(), &Profile{Phone: "+15550000000"})
	require.Error(t, err)
}

func TestDeleteMissingProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectDel("store:+15550000000").SetVal(0)

	err := store.Delete(context.Background(), "+15550000000")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListScansAllProfiles(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectScan(0, "store:*", 100).SetVal([]string{"store:+15559990000", "store:+15558880000"}, 0)
	mock.ExpectHGetAll("store:+15559990000").SetVal(map[string]string{
		"store_name": "Maple Outfitters",
	})
	mock.ExpectHGetAll("store:+15558880000").SetVal(map[string]string{
		"store_name": "Birch Books",
	})

	profiles, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Maple Outfitters", profiles[0].StoreName)
	assert.Equal(t, "Birch Books", profiles[1].StoreName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
