package cart

import (
	"context"
	"errors"
	"testing"

	"glowhair/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSnapshotStore is an in-memory SnapshotStore recording the calls the
// cart makes against it.
type memSnapshotStore struct {
	snapshots map[string]*models.CartSnapshot
	saves     int
	deletes   int
	failAll   bool
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{snapshots: make(map[string]*models.CartSnapshot)}
}

func (m *memSnapshotStore) Load(_ context.Context, key string) (*models.CartSnapshot, error) {
	if m.failAll {
		return nil, errors.New("storage down")
	}
	return m.snapshots[key], nil
}

func (m *memSnapshotStore) Save(_ context.Context, key string, snap *models.CartSnapshot) error {
	if m.failAll {
		return errors.New("storage down")
	}
	m.saves++
	m.snapshots[key] = snap
	return nil
}

func (m *memSnapshotStore) Delete(_ context.Context, key string) error {
	if m.failAll {
		return errors.New("storage down")
	}
	m.deletes++
	delete(m.snapshots, key)
	return nil
}

func shampoo() models.Product {
	return models.Product{
		ID:       1,
		Name:     "Repair Shampoo",
		Price:    29.99,
		Image:    "https://cdn.example.com/shampoo.jpg",
		Category: "shampoo",
		Brand:    "GlowHair",
		Stock:    5,
	}
}

func conditioner() models.Product {
	return models.Product{
		ID:       2,
		Name:     "Silk Conditioner",
		Price:    19.50,
		Image:    "https://cdn.example.com/conditioner.jpg",
		Category: "conditioner",
		Brand:    "GlowHair",
		Stock:    3,
	}
}

func newTestStore(t *testing.T) (*Store, *memSnapshotStore) {
	t.Helper()
	storage := newMemSnapshotStore()
	return NewStore(context.Background(), "glowhair:cart:test", storage), storage
}

func assertDerived(t *testing.T, s *Store) {
	t.Helper()

	var total float64
	var count int
	for _, item := range s.Items() {
		total += item.Price * float64(item.Quantity)
		count += item.Quantity
	}
	assert.Equal(t, total, s.Total())
	assert.Equal(t, count, s.ItemCount())
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddItem(ctx, shampoo(), 1)
	s.AddItem(ctx, shampoo(), 2)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assertDerived(t, s)
}

func TestAddItemClampsToStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.AddItem(ctx, shampoo(), 2)
	}

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity, "quantity must never exceed stock")
	assertDerived(t, s)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	s, _ := newTestStore(t)

	s.AddItem(context.Background(), conditioner(), 0)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAddItemOutOfStockProductNotAdded(t *testing.T) {
	s, _ := newTestStore(t)

	p := shampoo()
	p.Stock = 0
	s.AddItem(context.Background(), p, 1)

	assert.Empty(t, s.Items())
	assert.Zero(t, s.Total())
}

func TestRemoveItemAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddItem(ctx, shampoo(), 1)
	s.RemoveItem(ctx, 999)

	assert.Len(t, s.Items(), 1)
	assertDerived(t, s)
}

func TestRemoveThenAddLeavesNoResidualState(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddItem(ctx, shampoo(), 4)
	s.RemoveItem(ctx, 1)
	s.AddItem(ctx, shampoo(), 3)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestUpdateQuantityZeroEqualsRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddItem(ctx, shampoo(), 2)
	s.UpdateQuantity(ctx, 1, 0)

	assert.Empty(t, s.Items())
	assert.Zero(t, s.Total())
	assert.Zero(t, s.ItemCount())
}

func TestUpdateQuantityClampsToStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddItem(ctx, conditioner(), 1)
	s.UpdateQuantity(ctx, 2, 50)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assertDerived(t, s)
}

func TestClearIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddItem(ctx, shampoo(), 2)
	s.AddItem(ctx, conditioner(), 1)

	s.Clear(ctx)
	first := s.Items()
	s.Clear(ctx)

	assert.Empty(t, first)
	assert.Empty(t, s.Items())
	assert.Zero(t, s.Total())
	assert.Zero(t, s.ItemCount())
}

func TestDerivedTotalsAcrossMixedOperations(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddItem(ctx, shampoo(), 2)
	s.AddItem(ctx, conditioner(), 3)
	s.UpdateQuantity(ctx, 1, 1)
	s.RemoveItem(ctx, 2)
	s.AddItem(ctx, conditioner(), 2)

	assertDerived(t, s)
	assert.InDelta(t, 29.99+2*19.50, s.Total(), 1e-9)
	assert.Equal(t, 3, s.ItemCount())
}

func TestSnapshotRoundTrip(t *testing.T) {
	storage := newMemSnapshotStore()
	ctx := context.Background()

	s := NewStore(ctx, "glowhair:cart:rt", storage)
	s.AddItem(ctx, shampoo(), 2)
	s.AddItem(ctx, conditioner(), 1)

	reloaded := NewStore(ctx, "glowhair:cart:rt", storage)
	assert.Equal(t, s.Items(), reloaded.Items())
	assert.Equal(t, s.Total(), reloaded.Total())
	assert.Equal(t, s.ItemCount(), reloaded.ItemCount())
}

func TestEmptyCartDeletesSnapshotInsteadOfWritingIt(t *testing.T) {
	storage := newMemSnapshotStore()
	ctx := context.Background()

	s := NewStore(ctx, "glowhair:cart:empty", storage)
	s.AddItem(ctx, shampoo(), 1)
	require.Contains(t, storage.snapshots, "glowhair:cart:empty")

	s.RemoveItem(ctx, 1)

	assert.NotContains(t, storage.snapshots, "glowhair:cart:empty")
	assert.Equal(t, 1, storage.deletes)
	// An emptied cart and a never-initialized one are indistinguishable
	// on reload.
	reloaded := NewStore(ctx, "glowhair:cart:empty", storage)
	assert.Empty(t, reloaded.Items())
}

func TestUnknownSnapshotVersionIsDiscarded(t *testing.T) {
	storage := newMemSnapshotStore()
	ctx := context.Background()

	storage.snapshots["glowhair:cart:legacy"] = &models.CartSnapshot{
		SchemaVersion: 0,
		Items:         []models.CartItem{{Product: shampoo(), Quantity: 2}},
		Total:         59.98,
		ItemCount:     2,
	}

	s := NewStore(ctx, "glowhair:cart:legacy", storage)
	assert.Empty(t, s.Items())
	assert.Zero(t, s.Total())
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	storage := newMemSnapshotStore()
	storage.failAll = true
	ctx := context.Background()

	s := NewStore(ctx, "glowhair:cart:down", storage)
	s.AddItem(ctx, shampoo(), 2)
	s.UpdateQuantity(ctx, 1, 1)
	s.Clear(ctx)

	// In-memory state stays authoritative even when every write fails.
	assert.Empty(t, s.Items())
}

func TestDrawerFlagNotPersisted(t *testing.T) {
	storage := newMemSnapshotStore()
	ctx := context.Background()

	s := NewStore(ctx, "glowhair:cart:drawer", storage)
	s.AddItem(ctx, shampoo(), 1)
	saves := storage.saves

	s.Toggle()
	assert.True(t, s.IsOpen())
	s.Open()
	s.Close()
	assert.False(t, s.IsOpen())

	assert.Equal(t, saves, storage.saves, "visibility changes must not write snapshots")

	reloaded := NewStore(ctx, "glowhair:cart:drawer", storage)
	assert.False(t, reloaded.IsOpen())
}

func TestManagerReturnsSameStorePerSession(t *testing.T) {
	m := NewManager(newMemSnapshotStore())
	ctx := context.Background()

	a := m.Get(ctx, "sess-1")
	b := m.Get(ctx, "sess-1")
	c := m.Get(ctx, "sess-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
