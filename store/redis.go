package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"sealwire/configs"
)

// RedisStore is the production KeyStore, backed by a single Redis instance.
// Key layout follows configs' Store* templates, the same pattern the
// upstream client/server split used for its own Redis-backed records.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) PutIdentity(ctx context.Context, userID string, data []byte) error {
	return s.client.Set(ctx, fmt.Sprintf(configs.StoreIdentityKey, userID), data, 0).Err()
}

func (s *RedisStore) GetIdentity(ctx context.Context, userID string) ([]byte, error) {
	return s.get(ctx, fmt.Sprintf(configs.StoreIdentityKey, userID))
}

func (s *RedisStore) DeleteIdentity(ctx context.Context, userID string) error {
	return s.client.Del(ctx, fmt.Sprintf(configs.StoreIdentityKey, userID)).Err()
}

func (s *RedisStore) PutSignedPrekey(ctx context.Context, userID string, id uint32, data []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(configs.StoreSignedPrekeyKey, userID, id), data, 0)
	pipe.SAdd(ctx, fmt.Sprintf(configs.StoreSignedPrekeyIndex, userID), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetSignedPrekey(ctx context.Context, userID string, id uint32) ([]byte, error) {
	return s.get(ctx, fmt.Sprintf(configs.StoreSignedPrekeyKey, userID, id))
}

func (s *RedisStore) DeleteSignedPrekey(ctx context.Context, userID string, id uint32) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(configs.StoreSignedPrekeyKey, userID, id))
	pipe.SRem(ctx, fmt.Sprintf(configs.StoreSignedPrekeyIndex, userID), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListSignedPrekeyIDs(ctx context.Context, userID string) ([]uint32, error) {
	return s.listIndex(ctx, fmt.Sprintf(configs.StoreSignedPrekeyIndex, userID))
}

func (s *RedisStore) PutOneTimePrekey(ctx context.Context, userID string, id uint32, data []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(configs.StoreOneTimePrekeyKey, userID, id), data, 0)
	pipe.SAdd(ctx, fmt.Sprintf(configs.StoreOTPKIndex, userID), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetOneTimePrekey(ctx context.Context, userID string, id uint32) ([]byte, error) {
	return s.get(ctx, fmt.Sprintf(configs.StoreOneTimePrekeyKey, userID, id))
}

func (s *RedisStore) DeleteOneTimePrekey(ctx context.Context, userID string, id uint32) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(configs.StoreOneTimePrekeyKey, userID, id))
	pipe.SRem(ctx, fmt.Sprintf(configs.StoreOTPKIndex, userID), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListOneTimePrekeyIDs(ctx context.Context, userID string) ([]uint32, error) {
	return s.listIndex(ctx, fmt.Sprintf(configs.StoreOTPKIndex, userID))
}

func (s *RedisStore) PutSession(ctx context.Context, conversationID string, data []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(configs.StoreSessionKey, conversationID), data, 0)
	pipe.SAdd(ctx, configs.StoreSessionIndex, conversationID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetSession(ctx context.Context, conversationID string) ([]byte, error) {
	return s.get(ctx, fmt.Sprintf(configs.StoreSessionKey, conversationID))
}

func (s *RedisStore) DeleteSession(ctx context.Context, conversationID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(configs.StoreSessionKey, conversationID))
	pipe.SRem(ctx, configs.StoreSessionIndex, conversationID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) PutMetadata(ctx context.Context, userID, name string, data []byte) error {
	return s.client.Set(ctx, fmt.Sprintf(configs.StoreMetadataKey, userID, name), data, 0).Err()
}

func (s *RedisStore) GetMetadata(ctx context.Context, userID, name string) ([]byte, error) {
	return s.get(ctx, fmt.Sprintf(configs.StoreMetadataKey, userID, name))
}

// ClearAll deletes the identity, every signed prekey and one-time prekey,
// every metadata scalar for userID, and every session this store instance
// has recorded, so no residual secret byte remains fetchable afterward.
func (s *RedisStore) ClearAll(ctx context.Context, userID string) error {
	spkIDs, err := s.ListSignedPrekeyIDs(ctx, userID)
	if err != nil {
		return err
	}
	otpkIDs, err := s.ListOneTimePrekeyIDs(ctx, userID)
	if err != nil {
		return err
	}
	sessionIDs, err := s.client.SMembers(ctx, configs.StoreSessionIndex).Result()
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(configs.StoreIdentityKey, userID))
	for _, id := range spkIDs {
		pipe.Del(ctx, fmt.Sprintf(configs.StoreSignedPrekeyKey, userID, id))
	}
	pipe.Del(ctx, fmt.Sprintf(configs.StoreSignedPrekeyIndex, userID))
	for _, id := range otpkIDs {
		pipe.Del(ctx, fmt.Sprintf(configs.StoreOneTimePrekeyKey, userID, id))
	}
	pipe.Del(ctx, fmt.Sprintf(configs.StoreOTPKIndex, userID))
	for _, convID := range sessionIDs {
		pipe.Del(ctx, fmt.Sprintf(configs.StoreSessionKey, convID))
	}
	pipe.Del(ctx, configs.StoreSessionIndex)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) listIndex(ctx context.Context, key string) ([]uint32, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}
