package cart

import (
	"context"

	"glowhair/internal/models"
)

// SnapshotStore persists cart snapshots keyed by session. Load returns
// (nil, nil) when no snapshot is stored under the key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*models.CartSnapshot, error)
	Save(ctx context.Context, key string, snap *models.CartSnapshot) error
	Delete(ctx context.Context, key string) error
}
