package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"sealwire/configs"
	"sealwire/model"
)

// RedisDirectory is the production Directory client, backed by the same
// Redis instance the key store uses, following the key-template-plus-
// fmt.Sprintf convention the upstream client/server split used for its own
// published-key records.
type RedisDirectory struct {
	client *redis.Client
}

// NewRedisDirectory wraps an already-connected Redis client.
func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	return &RedisDirectory{client: client}
}

func (d *RedisDirectory) UpsertIdentity(ctx context.Context, identity model.PublicIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return d.client.Set(ctx, fmt.Sprintf(configs.DirectoryIdentityKey, identity.UserID), data, 0).Err()
}

func (d *RedisDirectory) UpsertSignedPrekey(ctx context.Context, userID string, spk model.PublicSignedPrekey) error {
	data, err := json.Marshal(spk)
	if err != nil {
		return err
	}
	return d.client.Set(ctx, fmt.Sprintf(configs.DirectorySignedPrekeyKey, userID), data, 0).Err()
}

func (d *RedisDirectory) InsertOneTimePrekeys(ctx context.Context, userID string, otpks []model.PublicOneTimePrekey) error {
	pipe := d.client.TxPipeline()
	for _, otpk := range otpks {
		data, err := json.Marshal(otpk)
		if err != nil {
			return err
		}
		pipe.Set(ctx, fmt.Sprintf(configs.DirectoryOTPKRecordKey, userID, otpk.ID), data, 0)
		pipe.SAdd(ctx, fmt.Sprintf(configs.DirectoryOTPKSetKey, userID), otpk.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (d *RedisDirectory) FetchIdentity(ctx context.Context, userID string) (*model.PublicIdentity, error) {
	data, err := d.client.Get(ctx, fmt.Sprintf(configs.DirectoryIdentityKey, userID)).Bytes()
	if err == redis.Nil {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	var identity model.PublicIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (d *RedisDirectory) FetchLatestSignedPrekey(ctx context.Context, userID string) (*model.PublicSignedPrekey, error) {
	data, err := d.client.Get(ctx, fmt.Sprintf(configs.DirectorySignedPrekeyKey, userID)).Bytes()
	if err == redis.Nil {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	var spk model.PublicSignedPrekey
	if err := json.Unmarshal(data, &spk); err != nil {
		return nil, err
	}
	return &spk, nil
}

// ClaimOneTimePrekey relies on SPOP's single-command atomicity: Redis
// executes it as one indivisible step, so two concurrent callers popping
// from the same unused-id set never observe the same member.
func (d *RedisDirectory) ClaimOneTimePrekey(ctx context.Context, userID string) (*model.PublicOneTimePrekey, error) {
	member, err := d.client.SPop(ctx, fmt.Sprintf(configs.DirectoryOTPKSetKey, userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(member, 10, 32)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(configs.DirectoryOTPKRecordKey, userID, uint32(id))
	data, err := d.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		// The id was popped but its record is gone; nothing usable remains
		// for this id, report absent rather than surfacing a phantom key.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.client.Del(ctx, key)

	var otpk model.PublicOneTimePrekey
	if err := json.Unmarshal(data, &otpk); err != nil {
		return nil, err
	}
	return &otpk, nil
}

func (d *RedisDirectory) UnusedOneTimePrekeyCount(ctx context.Context, userID string) (int, error) {
	n, err := d.client.SCard(ctx, fmt.Sprintf(configs.DirectoryOTPKSetKey, userID)).Result()
	return int(n), err
}
