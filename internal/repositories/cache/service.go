package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alumnet/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get reports false without error on a miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Offer caching

func (s *CacheService) CacheOffer(ctx context.Context, offer *models.SwapOffer) error {
	if offer == nil {
		return errors.New("cannot cache nil offer")
	}
	return s.Set(ctx, GenerateKey(EntityOffer, KeyID, offer.ID), offer)
}

// GetOffer returns (nil, nil) on a miss.
func (s *CacheService) GetOffer(ctx context.Context, id uuid.UUID) (*models.SwapOffer, error) {
	var offer models.SwapOffer
	found, err := s.Get(ctx, GenerateKey(EntityOffer, KeyID, id), &offer)
	if err != nil || !found {
		return nil, err
	}
	return &offer, nil
}

func (s *CacheService) InvalidateOffer(ctx context.Context, id uuid.UUID) error {
	return s.Delete(ctx, GenerateKey(EntityOffer, KeyID, id))
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
