package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/model"
)

// Zones is the part of the zone graph the scheduler reads and mutates.
type Zones interface {
	Zone(id string) (model.Zone, error)
	Evacuate(ctx context.Context, zoneID string, persons int) (model.Zone, error)
}

// Stock reports whether a zone currently holds relief supplies.
type Stock interface {
	HasStock(ctx context.Context, key string) (bool, error)
}

// Persister receives every request state change while the queue is locked.
type Persister interface {
	SaveEvacuation(ctx context.Context, r model.EvacuationRequest) error
}

// Scheduler is safe for concurrent use. A one-slot semaphore serialises all
// operations with a bounded wait.
type Scheduler struct {
	sem      chan struct{}
	requests map[string]*model.EvacuationRequest
	queue    pendingQueue
	seq      uint64

	cfg     Config
	zones   Zones
	stock   Stock
	persist Persister
	now     func() time.Time
	newID   func() string
	log     logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPersister installs p as the request sink.
func WithPersister(p Persister) Option { return func(s *Scheduler) { s.persist = p } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// New creates a Scheduler. cfg must have defaults applied.
func New(cfg Config, zones Zones, stock Stock, log logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		sem:      make(chan struct{}, 1),
		requests: make(map[string]*model.EvacuationRequest),
		cfg:      cfg,
		zones:    zones,
		stock:    stock,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logger.OrNop(log),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scheduler) lock(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	default:
	}
	timer := time.NewTimer(s.cfg.lockTimeout())
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-timer.C:
		return nil, fmt.Errorf("evacuation queue: %w", model.ErrLockTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Restore rebuilds the queue from persisted requests without calling the
// persister. Submission order is recovered from Seq.
func (s *Scheduler) Restore(reqs []model.EvacuationRequest) error {
	release, err := s.lock(context.Background())
	if err != nil {
		return err
	}
	defer release()
	for _, r := range reqs {
		if _, dup := s.requests[r.ID]; dup {
			return fmt.Errorf("duplicate evacuation %s", r.ID)
		}
		req := r
		s.requests[r.ID] = &req
		if req.State == model.EvacuationPending {
			heap.Push(&s.queue, &req)
		}
		s.seq = max(s.seq, r.Seq)
	}
	return nil
}

// Submit queues an evacuation of persons out of zoneID. The priority is
// computed from the zone as it is now and never recomputed.
func (s *Scheduler) Submit(ctx context.Context, zoneID string, persons int) (model.EvacuationRequest, error) {
	if persons <= 0 {
		return model.EvacuationRequest{}, fmt.Errorf("%w: persons %d", model.ErrInvalidQuantity, persons)
	}
	z, err := s.zones.Zone(zoneID)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	hasStock := false
	if s.stock != nil {
		if hasStock, err = s.stock.HasStock(ctx, zoneID); err != nil {
			return model.EvacuationRequest{}, fmt.Errorf("stock check: %w", err)
		}
	}
	priority := s.cfg.Priority(z.Risk, z.Population, len(z.Teams), hasStock)

	release, err := s.lock(ctx)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	defer release()
	req := &model.EvacuationRequest{
		ID:        s.newID(),
		ZoneID:    zoneID,
		Persons:   persons,
		Priority:  priority,
		State:     model.EvacuationPending,
		Seq:       s.seq + 1,
		CreatedAt: s.now().UTC(),
	}
	if err := s.save(ctx, *req); err != nil {
		return model.EvacuationRequest{}, err
	}
	s.seq = req.Seq
	s.requests[req.ID] = req
	heap.Push(&s.queue, req)
	s.log.Infow("evacuation submitted", map[string]any{
		"id": req.ID, "zone": zoneID, "persons": persons, "priority": priority,
	})
	return *req, nil
}

func (s *Scheduler) save(ctx context.Context, r model.EvacuationRequest) error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.SaveEvacuation(ctx, r); err != nil {
		return fmt.Errorf("persist evacuation %s: %w", r.ID, err)
	}
	return nil
}

// NextPending returns the pending request that would be served next without
// changing its state.
func (s *Scheduler) NextPending(ctx context.Context) (model.EvacuationRequest, bool, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return model.EvacuationRequest{}, false, err
	}
	defer release()
	if len(s.queue) == 0 {
		return model.EvacuationRequest{}, false, nil
	}
	return *s.queue[0], true, nil
}

// Start moves a pending request to IN_PROGRESS. Starting a request that is
// already in progress returns it unchanged.
func (s *Scheduler) Start(ctx context.Context, id string) (model.EvacuationRequest, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	defer release()
	req, err := s.get(id)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	switch req.State {
	case model.EvacuationCompleted:
		return model.EvacuationRequest{}, fmt.Errorf("evacuation %s: %w", id, model.ErrAlreadyCompleted)
	case model.EvacuationInProgress:
		return *req, nil
	}
	next := *req
	at := s.now().UTC()
	next.State = model.EvacuationInProgress
	next.StartedAt = &at
	if err := s.save(ctx, next); err != nil {
		return model.EvacuationRequest{}, err
	}
	s.dequeue(id)
	*req = next
	return next, nil
}

// Process completes a request: the zone population drops by the requested
// persons (floored at zero) and the zone is flagged evacuated when empty.
// A request is completed at most once; later calls fail with
// model.ErrAlreadyCompleted.
func (s *Scheduler) Process(ctx context.Context, id string) (model.EvacuationRequest, model.Zone, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return model.EvacuationRequest{}, model.Zone{}, err
	}
	defer release()
	req, err := s.get(id)
	if err != nil {
		return model.EvacuationRequest{}, model.Zone{}, err
	}
	if req.State == model.EvacuationCompleted {
		return model.EvacuationRequest{}, model.Zone{}, fmt.Errorf("evacuation %s: %w", id, model.ErrAlreadyCompleted)
	}
	z, err := s.zones.Evacuate(ctx, req.ZoneID, req.Persons)
	if err != nil {
		return model.EvacuationRequest{}, model.Zone{}, fmt.Errorf("evacuate zone %s: %w", req.ZoneID, err)
	}
	at := s.now().UTC()
	if req.StartedAt == nil {
		req.StartedAt = &at
	}
	req.State = model.EvacuationCompleted
	req.CompletedAt = &at
	s.dequeue(id)
	// The zone has already changed; the request must stay completed even if
	// the store rejects it, or a retry would evacuate the zone twice.
	if err := s.save(ctx, *req); err != nil {
		s.log.Errorf("evacuation %s completed but not persisted: %v", id, err)
	}
	s.log.Infow("evacuation completed", map[string]any{
		"id": id, "zone": req.ZoneID, "persons": req.Persons,
		"population": z.Population, "evacuated": z.Evacuated,
	})
	return *req, z, nil
}

func (s *Scheduler) get(id string) (*model.EvacuationRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("evacuation %s: %w", id, model.ErrNotFound)
	}
	return req, nil
}

func (s *Scheduler) dequeue(id string) {
	if i := s.queue.indexOf(id); i >= 0 {
		heap.Remove(&s.queue, i)
	}
}

// Get returns a request by id.
func (s *Scheduler) Get(ctx context.Context, id string) (model.EvacuationRequest, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	defer release()
	req, err := s.get(id)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	return *req, nil
}

// List returns all requests ordered by frozen priority, highest first, then
// by submission order.
func (s *Scheduler) List(ctx context.Context) ([]model.EvacuationRequest, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	all := make([]*model.EvacuationRequest, 0, len(s.requests))
	for _, r := range s.requests {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return ahead(all[i], all[j]) })
	out := make([]model.EvacuationRequest, len(all))
	for i, r := range all {
		out[i] = *r
	}
	return out, nil
}

// Counts returns the number of requests per state.
func (s *Scheduler) Counts(ctx context.Context) (map[model.EvacuationState]int, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	out := map[model.EvacuationState]int{}
	for _, r := range s.requests {
		out[r.State]++
	}
	return out, nil
}

// QueueDepth is the number of pending requests.
func (s *Scheduler) QueueDepth(ctx context.Context) (int, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	return len(s.queue), nil
}
