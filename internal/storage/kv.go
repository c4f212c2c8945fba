// Package storage holds the key/value backends that persist per-session
// shopper state (cart, view history) between requests.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Document is the versioned envelope every persisted value is wrapped in.
type Document struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// ErrVersionMismatch is returned by LoadJSON when the stored schema version
// differs from the one the caller understands.
var ErrVersionMismatch = errors.New("storage: schema version mismatch")

func SaveJSON(ctx context.Context, kv KV, key string, version int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", key, err)
	}
	raw, err := json.Marshal(Document{Version: version, Data: data})
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}

func LoadJSON(ctx context.Context, kv KV, key string, version int, dst any) error {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("storage: decode %s: %w", key, err)
	}
	if doc.Version != version {
		return fmt.Errorf("%w: %s has version %d, want %d", ErrVersionMismatch, key, doc.Version, version)
	}
	if err := json.Unmarshal(doc.Data, dst); err != nil {
		return fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return nil
}
