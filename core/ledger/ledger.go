// Package ledger keeps per-location resource inventories.
//
// Every location owns a one-slot semaphore. Operations take the semaphores of
// the locations they touch in key order with a bounded wait, so transfers
// over disjoint pairs run in parallel while overlapping ones serialise.
// Snapshot takes a global exclusive lock to read all locations at one instant.
package ledger

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/model"
)

// Persister receives the new quantities of every touched entry while the
// location locks are held. A returned error cancels the operation.
type Persister interface {
	SaveStocks(ctx context.Context, entries []model.StockEntry, t *model.Transfer) error
}

type account struct {
	sem chan struct{}
	qty map[model.ResourceKind]int64
}

// Ledger is safe for concurrent use.
type Ledger struct {
	snap     sync.RWMutex
	mu       sync.Mutex
	accounts map[string]*account

	timeout time.Duration
	persist Persister
	now     func() time.Time
	newID   func() string
	log     logger.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPersister installs p as the stock change sink.
func WithPersister(p Persister) Option { return func(l *Ledger) { l.persist = p } }

// WithClock overrides the transfer timestamp source.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// New creates an empty ledger.
func New(cfg Config, log logger.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[string]*account),
		timeout:  cfg.LockTimeout(),
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logger.OrNop(log),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) account(key string) *account {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[key]
	if !ok {
		a = &account{sem: make(chan struct{}, 1), qty: make(map[model.ResourceKind]int64)}
		l.accounts[key] = a
	}
	return a
}

// lock acquires the semaphores of keys in sorted order. The returned release
// func must be called exactly once.
func (l *Ledger) lock(ctx context.Context, op string, keys ...string) (func(), error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	start := time.Now()
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]*account, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].sem
		}
	}
	for _, k := range keys {
		a := l.account(k)
		select {
		case a.sem <- struct{}{}:
			held = append(held, a)
			continue
		default:
		}
		select {
		case a.sem <- struct{}{}:
			held = append(held, a)
		case <-timer.C:
			release()
			lockTimeouts.WithLabelValues(op).Inc()
			return nil, fmt.Errorf("%s %v: %w", op, keys, model.ErrLockTimeout)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	lockWait.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return release, nil
}

func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty location key: %w", model.ErrNotFound)
	}
	return nil
}

// Restore loads entries without calling the persister.
func (l *Ledger) Restore(entries []model.StockEntry) error {
	l.snap.Lock()
	defer l.snap.Unlock()
	for _, e := range entries {
		if e.Quantity < 0 {
			return fmt.Errorf("%w: %s/%s has %d", model.ErrInvalidQuantity, e.Key, e.Kind, e.Quantity)
		}
		l.account(e.Key).qty[e.Kind] = e.Quantity
	}
	return nil
}

// Add increments the stock of kind at key, creating the entry at zero first.
// It returns the new quantity.
func (l *Ledger) Add(ctx context.Context, key string, kind model.ResourceKind, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: add %d", model.ErrInvalidQuantity, qty)
	}
	if err := validKey(key); err != nil {
		return 0, err
	}
	l.snap.RLock()
	defer l.snap.RUnlock()
	release, err := l.lock(ctx, "add", key)
	if err != nil {
		return 0, err
	}
	defer release()

	a := l.account(key)
	next, err := credit(a.qty[kind], qty)
	if err != nil {
		return 0, fmt.Errorf("add to %s/%s: %w", key, kind, err)
	}
	if l.persist != nil {
		entry := model.StockEntry{Key: key, Kind: kind, Quantity: next}
		if err := l.persist.SaveStocks(ctx, []model.StockEntry{entry}, nil); err != nil {
			return 0, fmt.Errorf("persist stock: %w", err)
		}
	}
	a.qty[kind] = next
	l.log.Debugw("stock added", map[string]any{"key": key, "kind": string(kind), "qty": qty, "total": next})
	return next, nil
}

// Transfer moves qty of kind from src to dst. Both the debit and the credit
// happen while both locations are locked, or neither happens.
func (l *Ledger) Transfer(ctx context.Context, src, dst string, kind model.ResourceKind, qty int64) (model.Transfer, error) {
	if qty <= 0 {
		return model.Transfer{}, fmt.Errorf("%w: transfer %d", model.ErrInvalidQuantity, qty)
	}
	if err := validKey(src); err != nil {
		return model.Transfer{}, err
	}
	if err := validKey(dst); err != nil {
		return model.Transfer{}, err
	}
	if src == dst {
		return model.Transfer{}, fmt.Errorf("%w: %s", model.ErrSameLocation, src)
	}
	l.snap.RLock()
	defer l.snap.RUnlock()
	release, err := l.lock(ctx, "transfer", src, dst)
	if err != nil {
		return model.Transfer{}, err
	}
	defer release()

	from, to := l.account(src), l.account(dst)
	have := from.qty[kind]
	if have < qty {
		return model.Transfer{}, fmt.Errorf("%w: %s has %d %s, requested %d", model.ErrInsufficientStock, src, have, kind, qty)
	}
	credited, err := credit(to.qty[kind], qty)
	if err != nil {
		return model.Transfer{}, fmt.Errorf("transfer to %s/%s: %w", dst, kind, err)
	}
	debited := have - qty
	t := model.Transfer{
		ID: l.newID(), Source: src, Dest: dst, Kind: kind, Quantity: qty, At: l.now().UTC(),
		SourceLevel: debited, DestLevel: credited,
	}
	if l.persist != nil {
		entries := []model.StockEntry{
			{Key: src, Kind: kind, Quantity: debited},
			{Key: dst, Kind: kind, Quantity: credited},
		}
		if err := l.persist.SaveStocks(ctx, entries, &t); err != nil {
			return model.Transfer{}, fmt.Errorf("persist transfer: %w", err)
		}
	}
	from.qty[kind] = debited
	to.qty[kind] = credited
	l.log.Debugw("stock transferred", map[string]any{
		"source": src, "destination": dst, "kind": string(kind), "qty": qty,
	})
	return t, nil
}

// Balance returns a copy of the stock held at key. Unknown keys yield an
// empty map.
func (l *Ledger) Balance(ctx context.Context, key string) (map[model.ResourceKind]int64, error) {
	out := map[model.ResourceKind]int64{}
	err := l.read(ctx, key, func(a *account) {
		for k, v := range a.qty {
			out[k] = v
		}
	})
	return out, err
}

// Quantity returns the stock of one kind at key.
func (l *Ledger) Quantity(ctx context.Context, key string, kind model.ResourceKind) (int64, error) {
	var q int64
	err := l.read(ctx, key, func(a *account) { q = a.qty[kind] })
	return q, err
}

// HasStock reports whether any kind has a positive quantity at key.
func (l *Ledger) HasStock(ctx context.Context, key string) (bool, error) {
	var found bool
	err := l.read(ctx, key, func(a *account) {
		for _, v := range a.qty {
			if v > 0 {
				found = true
				return
			}
		}
	})
	return found, err
}

// Deficit returns max(0, population*perPerson - total stock at key), summed
// over all kinds.
func (l *Ledger) Deficit(ctx context.Context, key string, population, perPerson int64) (int64, error) {
	if population < 0 || perPerson < 0 {
		return 0, fmt.Errorf("%w: population %d, per person %d", model.ErrInvalidQuantity, population, perPerson)
	}
	var total int64
	err := l.read(ctx, key, func(a *account) {
		for _, v := range a.qty {
			total = saturatingAdd(total, v)
		}
	})
	if err != nil {
		return 0, err
	}
	return max(0, saturatingMul(population, perPerson)-total), nil
}

// KindDeficit is Deficit restricted to one kind.
func (l *Ledger) KindDeficit(ctx context.Context, key string, kind model.ResourceKind, population, perPerson int64) (int64, error) {
	if population < 0 || perPerson < 0 {
		return 0, fmt.Errorf("%w: population %d, per person %d", model.ErrInvalidQuantity, population, perPerson)
	}
	q, err := l.Quantity(ctx, key, kind)
	if err != nil {
		return 0, err
	}
	return max(0, saturatingMul(population, perPerson)-q), nil
}

// credit returns level+qty, refusing a level past math.MaxInt64.
func credit(level, qty int64) (int64, error) {
	if qty > math.MaxInt64-level {
		return 0, fmt.Errorf("%w: %d + %d exceeds %d", model.ErrInvalidQuantity, level, qty, int64(math.MaxInt64))
	}
	return level + qty, nil
}

// saturatingAdd and saturatingMul operate on non-negative values and clamp
// at math.MaxInt64.
func saturatingAdd(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

func saturatingMul(a, b int64) int64 {
	if a != 0 && b > math.MaxInt64/a {
		return math.MaxInt64
	}
	return a * b
}

func (l *Ledger) read(ctx context.Context, key string, fn func(*account)) error {
	l.mu.Lock()
	_, known := l.accounts[key]
	l.mu.Unlock()
	if !known {
		fn(&account{qty: map[model.ResourceKind]int64{}})
		return nil
	}
	l.snap.RLock()
	defer l.snap.RUnlock()
	release, err := l.lock(ctx, "read", key)
	if err != nil {
		return err
	}
	defer release()
	fn(l.account(key))
	return nil
}

// Snapshot returns every entry, sorted by key then kind, as of a single
// instant: no transfer is half visible.
func (l *Ledger) Snapshot() []model.StockEntry {
	l.snap.Lock()
	defer l.snap.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.StockEntry
	for key, a := range l.accounts {
		for kind, q := range a.qty {
			out = append(out, model.StockEntry{Key: key, Kind: kind, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Totals sums every kind over all locations.
func (l *Ledger) Totals() map[model.ResourceKind]int64 {
	out := map[model.ResourceKind]int64{}
	for _, e := range l.Snapshot() {
		out[e.Kind] += e.Quantity
	}
	return out
}
