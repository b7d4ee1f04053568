package cart

import (
	"context"
	"sync"
	"time"

	"glowhair/internal/models"
	"glowhair/internal/util"

	"go.uber.org/zap"
)

// Store holds the cart line items for one session together with the
// derived total and item count. Every mutation recomputes the derived
// values and writes a snapshot; when the cart becomes empty the stored
// key is deleted instead of written as an empty list.
//
// Store never returns errors to callers: storage failures are logged and
// the in-memory state stays authoritative.
type Store struct {
	mu      sync.Mutex
	key     string
	storage SnapshotStore
	logger  *zap.Logger

	items     []models.CartItem
	total     float64
	itemCount int
	isOpen    bool
}

// NewStore creates a cart store for the given storage key and rehydrates
// it from a previously saved snapshot when one exists. Snapshots with an
// unknown schema version are discarded, not migrated.
func NewStore(ctx context.Context, key string, storage SnapshotStore) *Store {
	s := &Store{
		key:     key,
		storage: storage,
		logger:  util.GetLogger(),
	}

	snap, err := storage.Load(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to load cart snapshot, starting empty",
			zap.String("key", key),
			zap.Error(err))
		return s
	}
	if snap == nil {
		return s
	}

	if snap.SchemaVersion != models.CartSnapshotVersion {
		s.logger.Info("Discarding cart snapshot with unknown schema version",
			zap.String("key", key),
			zap.Int("schema_version", snap.SchemaVersion))
		return s
	}

	s.items = snap.Items
	s.recompute()
	return s
}

// AddItem adds quantity units of product to the cart. If the product is
// already present its quantity is incremented. Quantities that exceed
// stock are clamped silently; a line whose clamped quantity would drop
// to zero is removed.
func (s *Store) AddItem(ctx context.Context, product models.Product, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		quantity = 1
	}

	found := false
	for i := range s.items {
		if s.items[i].ID == product.ID {
			s.items[i].Quantity = clamp(s.items[i].Quantity+quantity, product.Stock)
			if s.items[i].Quantity <= 0 {
				s.items = append(s.items[:i], s.items[i+1:]...)
			}
			found = true
			break
		}
	}

	if !found {
		q := clamp(quantity, product.Stock)
		if q > 0 {
			s.items = append(s.items, models.CartItem{Product: product, Quantity: q})
		}
	}

	util.CartItemsAddedTotal.Inc()
	s.recompute()
	s.persist(ctx)
}

// RemoveItem removes the line for productID. Absent products are a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			util.CartItemsRemovedTotal.Inc()
			break
		}
	}

	s.recompute()
	s.persist(ctx)
}

// UpdateQuantity sets the quantity for productID, clamped to the line's
// stock. A quantity of zero or less removes the line. Absent products
// are a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == productID {
			s.items[i].Quantity = clamp(quantity, s.items[i].Stock)
			break
		}
	}

	s.recompute()
	s.persist(ctx)
}

// Clear empties the cart and deletes the stored snapshot.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	util.CartClearsTotal.Inc()
	s.recompute()
	s.persist(ctx)
}

// Toggle flips the cart drawer visibility flag. The flag is in-memory
// only and never persisted.
func (s *Store) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = !s.isOpen
}

// Open marks the cart drawer visible.
func (s *Store) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = true
}

// Close marks the cart drawer hidden.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = false
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.CartItem, len(s.items))
	copy(items, s.items)
	return items
}

// Total returns the derived sum of price * quantity over all lines.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ItemCount returns the derived sum of quantities over all lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemCount
}

// IsOpen reports the drawer visibility flag.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Snapshot returns the persistable view of the current state.
func (s *Store) Snapshot() *models.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() *models.CartSnapshot {
	items := make([]models.CartItem, len(s.items))
	copy(items, s.items)
	return &models.CartSnapshot{
		SchemaVersion: models.CartSnapshotVersion,
		Items:         items,
		Total:         s.total,
		ItemCount:     s.itemCount,
		SavedAt:       time.Now(),
	}
}

// recompute rebuilds total and itemCount from items. Callers hold s.mu.
func (s *Store) recompute() {
	var total float64
	var count int
	for _, item := range s.items {
		total += item.Subtotal()
		count += item.Quantity
	}
	s.total = total
	s.itemCount = count
}

// persist writes the snapshot, or deletes the key when the cart is
// empty. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	var err error
	if len(s.items) == 0 {
		err = s.storage.Delete(ctx, s.key)
	} else {
		err = s.storage.Save(ctx, s.key, s.snapshotLocked())
	}
	if err != nil {
		util.CartSnapshotErrorsTotal.Inc()
		s.logger.Warn("Failed to persist cart snapshot",
			zap.String("key", s.key),
			zap.Error(err))
	}
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		return stock
	}
	return quantity
}
