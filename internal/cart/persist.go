package cart

import (
	"context"
	"errors"

	"github.com/Skotchmaster/hat_shop/internal/storage"
)

const snapshotVersion = 1

// Snapshot is the persisted form of a cart. Products are stored by id and
// resolved against the catalog again on hydration.
type Snapshot struct {
	Items []SnapshotItem `json:"items"`
}

type SnapshotItem struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
}

type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

func StorageKey(sessionID string) string {
	return "cart:" + sessionID
}

// KVPersister keeps a cart under a single key of a storage.KV.
type KVPersister struct {
	KV  storage.KV
	Key string
}

// Load returns an empty snapshot when nothing was saved yet.
func (p *KVPersister) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := storage.LoadJSON(ctx, p.KV, p.Key, snapshotVersion, &snap)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (p *KVPersister) Save(ctx context.Context, snap Snapshot) error {
	return storage.SaveJSON(ctx, p.KV, p.Key, snapshotVersion, snap)
}
