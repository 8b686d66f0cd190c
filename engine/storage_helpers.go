package engine

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"sealwire/model"
	"sealwire/store"
)

func (e *Engine) putSignedPrekey(ctx context.Context, userID string, spk *model.SignedPrekey) error {
	data, err := json.Marshal(spk)
	if err != nil {
		return err
	}
	if err := e.store.PutSignedPrekey(ctx, userID, spk.ID, data); err != nil {
		return storageErr(err)
	}
	return nil
}

func (e *Engine) getSignedPrekey(ctx context.Context, userID string, id uint32) (*model.SignedPrekey, error) {
	data, err := e.store.GetSignedPrekey(ctx, userID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	var spk model.SignedPrekey
	if err := json.Unmarshal(data, &spk); err != nil {
		return nil, storageErr(err)
	}
	return &spk, nil
}

func (e *Engine) putOneTimePrekey(ctx context.Context, userID string, otpk *model.OneTimePrekey) error {
	data, err := json.Marshal(otpk)
	if err != nil {
		return err
	}
	if err := e.store.PutOneTimePrekey(ctx, userID, otpk.ID, data); err != nil {
		return storageErr(err)
	}
	return nil
}

func (e *Engine) getOneTimePrekey(ctx context.Context, userID string, id uint32) (*model.OneTimePrekey, error) {
	data, err := e.store.GetOneTimePrekey(ctx, userID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	var otpk model.OneTimePrekey
	if err := json.Unmarshal(data, &otpk); err != nil {
		return nil, storageErr(err)
	}
	return &otpk, nil
}

func (e *Engine) setMetaUint32(ctx context.Context, name string, v uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	if err := e.store.PutMetadata(ctx, e.userID, name, buf); err != nil {
		return storageErr(err)
	}
	return nil
}

// getMetaUint32 returns 0 if the metadata entry has never been written.
func (e *Engine) getMetaUint32(ctx context.Context, name string) (uint32, error) {
	data, err := e.store.GetMetadata(ctx, e.userID, name)
	if err == store.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr(err)
	}
	return binary.BigEndian.Uint32(data), nil
}

func (e *Engine) setMetaTime(ctx context.Context, name string, t time.Time) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	if err := e.store.PutMetadata(ctx, e.userID, name, data); err != nil {
		return storageErr(err)
	}
	return nil
}

// getMetaTime returns the zero Time if the metadata entry has never been
// written, which forces an immediate rotation on first check — the caller
// bootstraps last-rotation explicitly, so this path is only hit by
// defensive callers that skip bootstrap.
func (e *Engine) getMetaTime(ctx context.Context, name string) (time.Time, error) {
	data, err := e.store.GetMetadata(ctx, e.userID, name)
	if err == store.ErrNotFound {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, storageErr(err)
	}
	var t time.Time
	if err := t.UnmarshalBinary(data); err != nil {
		return time.Time{}, storageErr(err)
	}
	return t, nil
}
