// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// ErrNotFound is returned when no store profile exists for a phone number.
var ErrNotFound = errors.New("store profile not found")

// Profile is the per-store configuration, keyed by the store's inbound phone
// number. It is looked up once when a call arrives and treated as immutable
// for the rest of the call.
type Profile struct {
	Phone              string `json:"phone"`
	StoreName          string `json:"storeName"`
	StoreDetails       string `json:"storeDetails"`
	ShopifyAccessToken string `json:"-"`
	ShopifyBaseUrl     string `json:"shopifyBaseUrl"`
	TransferNumber     string `json:"transferNumber"`
}

// Store manages store profiles in Redis under store:{phone} hashes.
type Store interface {
	Get(ctx context.Context, phone string) (*Profile, error)
	Put(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, phone string) error
	List(ctx context.Context) ([]Profile, error)
}

const (
	keyPrefix = "store:"

	fieldStoreName      = "store_name"
	fieldStoreDetails   = "store_details"
	fieldAccessToken    = "shopify_access_token"
	fieldBaseUrl        = "shopify_base_url"
	fieldTransferNumber = "transfer_number"
)

type redisStore struct {
	redis  connectors.RedisConnector
	logger commons.Logger
}

// NewStore creates a store profile registry backed by Redis.
func NewStore(redis connectors.RedisConnector, logger commons.Logger) Store {
	return &redisStore{
		redis:  redis,
		logger: logger,
	}
}

func profileKey(phone string) string {
	return keyPrefix + phone
}

func (s *redisStore) Get(ctx context.Context, phone string) (*Profile, error) {
	fields, err := s.redis.Client().HGetAll(ctx, profileKey(phone)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read store profile %s: %w", phone, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, phone)
	}

	profile := &Profile{
		Phone:              phone,
		StoreName:          fields[fieldStoreName],
		StoreDetails:       fields[fieldStoreDetails],
		ShopifyAccessToken: fields[fieldAccessToken],
		ShopifyBaseUrl:     fields[fieldBaseUrl],
		TransferNumber:     fields[fieldTransferNumber],
	}

	s.logger.Debugf("resolved store profile: phone=%s, store=%s", phone, profile.StoreName)
	return profile, nil
}

// Put writes fields in a fixed order so the hash is reproducible.
func (s *redisStore) Put(ctx context.Context, profile *Profile) error {
	if profile.Phone == "" {
		return fmt.Errorf("store profile phone is required")
	}
	if profile.StoreName == "" {
		return fmt.Errorf("store profile store name is required")
	}

	err := s.redis.Client().HSet(ctx, profileKey(profile.Phone),
		fieldStoreName, profile.StoreName,
		fieldStoreDetails, profile.StoreDetails,
		fieldAccessToken, profile.ShopifyAccessToken,
		fieldBaseUrl, profile.ShopifyBaseUrl,
		fieldTransferNumber, profile.TransferNumber,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to write store profile %s: %w", profile.Phone, err)
	}

	s.logger.Infof("stored profile: phone=%s, store=%s", profile.Phone, profile.StoreName)
	return nil
}

func (s *redisStore) Delete(ctx context.Context, phone string) error {
	deleted, err := s.redis.Client().Del(ctx, profileKey(phone)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete store profile %s: %w", phone, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, phone)
	}

	s.logger.Infof("deleted store profile: phone=%s", phone)
	return nil
}

func (s *redisStore) List(ctx context.Context) ([]Profile, error) {
	client := s.redis.Client()

	var (
		cursor   uint64
		profiles []Profile
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan store profiles: %w", err)
		}
		for _, key := range keys {
			phone := key[len(keyPrefix):]
			profile, err := s.Get(ctx, phone)
			if err != nil {
				s.logger.Warnf("skipping unreadable store profile %s: %v", key, err)
				continue
			}
			profiles = append(profiles, *profile)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return profiles, nil
}
