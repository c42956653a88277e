package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/model"
)

func newLedger(opts ...Option) *Ledger {
	cfg := Config{}
	cfg.SetDefaults()
	return New(cfg, nil, opts...)
}

func TestWarehouseScenario(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.Add(ctx, "Warehouse", model.Food, 100)
	require.NoError(t, err)

	_, err = l.Transfer(ctx, "Warehouse", "ZoneX", model.Food, 150)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
	w, _ := l.Balance(ctx, "Warehouse")
	x, _ := l.Balance(ctx, "ZoneX")
	assert.Equal(t, int64(100), w[model.Food])
	assert.Equal(t, int64(0), x[model.Food])

	tr, err := l.Transfer(ctx, "Warehouse", "ZoneX", model.Food, 60)
	require.NoError(t, err)
	assert.NotEmpty(t, tr.ID)
	w, _ = l.Balance(ctx, "Warehouse")
	x, _ = l.Balance(ctx, "ZoneX")
	assert.Equal(t, int64(40), w[model.Food])
	assert.Equal(t, int64(60), x[model.Food])
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.Add(ctx, "a", model.Water, 0)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	_, err = l.Add(ctx, "a", model.Water, -5)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	_, err = l.Add(ctx, "", model.Water, 5)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = l.Add(ctx, "a", model.Water, 10)
	require.NoError(t, err)
	_, err = l.Transfer(ctx, "a", "a", model.Water, 1)
	assert.ErrorIs(t, err, model.ErrSameLocation)
	_, err = l.Transfer(ctx, "a", "b", model.Water, -1)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	_, err = l.Transfer(ctx, "a", "b", model.Medicine, 1)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
}

func TestBalanceUnknownKeyIsEmpty(t *testing.T) {
	l := newLedger()
	b, err := l.Balance(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Empty(t, b)
}

func TestDeficit(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, _ = l.Add(ctx, "z", model.Food, 300)
	_, _ = l.Add(ctx, "z", model.Water, 200)

	d, err := l.Deficit(ctx, "z", 100, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(500), d)

	d, err = l.Deficit(ctx, "z", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), d)

	d, err = l.KindDeficit(ctx, "z", model.Water, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(100), d)

	_, err = l.Deficit(ctx, "z", -1, 1)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)

	has, err := l.HasStock(ctx, "z")
	require.NoError(t, err)
	assert.True(t, has)
	has, _ = l.HasStock(ctx, "empty")
	assert.False(t, has)
}

func TestQuantitiesNeverOverflow(t *testing.T) {
	ctx := context.Background()
	l := newLedger()

	_, err := l.Add(ctx, "w", model.Food, math.MaxInt64)
	require.NoError(t, err)
	_, err = l.Add(ctx, "w", model.Food, 1)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	q, _ := l.Quantity(ctx, "w", model.Food)
	assert.Equal(t, int64(math.MaxInt64), q)

	_, err = l.Add(ctx, "b", model.Food, 10)
	require.NoError(t, err)
	_, err = l.Transfer(ctx, "w", "b", model.Food, math.MaxInt64)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	q, _ = l.Quantity(ctx, "w", model.Food)
	assert.Equal(t, int64(math.MaxInt64), q)
	q, _ = l.Quantity(ctx, "b", model.Food)
	assert.Equal(t, int64(10), q)

	d, err := l.Deficit(ctx, "empty", math.MaxInt64, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), d)
	d, err = l.KindDeficit(ctx, "b", model.Food, math.MaxInt64, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-10), d)

	_, err = l.Add(ctx, "w", model.Water, math.MaxInt64)
	require.NoError(t, err)
	d, err = l.Deficit(ctx, "w", 1, 1)
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestTransferReportsLevels(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.Add(ctx, "warehouse", model.Water, 500)
	require.NoError(t, err)
	_, err = l.Add(ctx, "zone", model.Water, 20)
	require.NoError(t, err)

	tr, err := l.Transfer(ctx, "warehouse", "zone", model.Water, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(350), tr.SourceLevel)
	assert.Equal(t, int64(170), tr.DestLevel)
}

func TestConservationUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		_, err := l.Add(ctx, k, model.Food, 1000)
		require.NoError(t, err)
		_, err = l.Add(ctx, k, model.Water, 500)
		require.NoError(t, err)
	}
	before := l.Totals()

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				src, dst := keys[rng.Intn(len(keys))], keys[rng.Intn(len(keys))]
				kind := model.Food
				if rng.Intn(2) == 0 {
					kind = model.Water
				}
				_, err := l.Transfer(ctx, src, dst, kind, int64(1+rng.Intn(120)))
				if err != nil && !errors.Is(err, model.ErrInsufficientStock) && !errors.Is(err, model.ErrSameLocation) {
					t.Errorf("unexpected error: %v", err)
				}
				if i%50 == 0 {
					assert.Equal(t, before, l.Totals())
				}
			}
		}(int64(w))
	}
	wg.Wait()

	assert.Equal(t, before, l.Totals())
	for _, e := range l.Snapshot() {
		assert.GreaterOrEqual(t, e.Quantity, int64(0), "%s/%s", e.Key, e.Kind)
	}
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.Add(ctx, "depot", model.Medicine, 100)
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.Transfer(ctx, "depot", fmt.Sprintf("zone-%d", i), model.Medicine, 10); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, ok)
	q, _ := l.Quantity(ctx, "depot", model.Medicine)
	assert.Equal(t, int64(0), q)
}

func TestLockTimeout(t *testing.T) {
	ctx := context.Background()
	l := New(Config{LockTimeoutMS: 20}, nil)
	_, err := l.Add(ctx, "a", model.Fuel, 10)
	require.NoError(t, err)

	release, err := l.lock(ctx, "test", "b")
	require.NoError(t, err)

	start := time.Now()
	_, err = l.Transfer(ctx, "a", "b", model.Fuel, 1)
	assert.ErrorIs(t, err, model.ErrLockTimeout)
	assert.Less(t, time.Since(start), time.Second)

	// The lock on "a", taken before waiting on "b", must have been released.
	_, err = l.Add(ctx, "a", model.Fuel, 1)
	assert.NoError(t, err)

	release()
	_, err = l.Transfer(ctx, "a", "b", model.Fuel, 1)
	assert.NoError(t, err)
}

type failingPersister struct{ err error }

func (p failingPersister) SaveStocks(context.Context, []model.StockEntry, *model.Transfer) error {
	return p.err
}

type capturePersister struct {
	entries   []model.StockEntry
	transfers []model.Transfer
}

func (p *capturePersister) SaveStocks(_ context.Context, e []model.StockEntry, t *model.Transfer) error {
	p.entries = append(p.entries, e...)
	if t != nil {
		p.transfers = append(p.transfers, *t)
	}
	return nil
}

func TestPersisterFailureLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.Add(ctx, "a", model.Food, 50)
	require.NoError(t, err)

	l.persist = failingPersister{err: errors.New("db down")}
	_, err = l.Transfer(ctx, "a", "b", model.Food, 20)
	require.Error(t, err)
	_, err = l.Add(ctx, "a", model.Food, 5)
	require.Error(t, err)

	q, _ := l.Quantity(ctx, "a", model.Food)
	assert.Equal(t, int64(50), q)
	q, _ = l.Quantity(ctx, "b", model.Food)
	assert.Equal(t, int64(0), q)
}

func TestPersisterSeesTransfer(t *testing.T) {
	ctx := context.Background()
	p := &capturePersister{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newLedger(WithPersister(p), WithClock(func() time.Time { return fixed }))
	_, err := l.Add(ctx, "a", model.Water, 30)
	require.NoError(t, err)
	_, err = l.Transfer(ctx, "a", "b", model.Water, 10)
	require.NoError(t, err)

	require.Len(t, p.transfers, 1)
	assert.Equal(t, fixed, p.transfers[0].At)
	assert.Equal(t, []model.StockEntry{
		{Key: "a", Kind: model.Water, Quantity: 30},
		{Key: "a", Kind: model.Water, Quantity: 20},
		{Key: "b", Kind: model.Water, Quantity: 10},
	}, p.entries)
}

func TestSnapshotSortedAndRestore(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.Restore([]model.StockEntry{
		{Key: "b", Kind: model.Water, Quantity: 5},
		{Key: "a", Kind: model.Food, Quantity: 7},
		{Key: "a", Kind: model.Blankets, Quantity: 1},
	}))
	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].Key)
	assert.Equal(t, model.Blankets, snap[0].Kind)
	assert.Equal(t, "b", snap[2].Key)

	assert.ErrorIs(t, l.Restore([]model.StockEntry{{Key: "c", Kind: model.Food, Quantity: -1}}), model.ErrInvalidQuantity)
}
