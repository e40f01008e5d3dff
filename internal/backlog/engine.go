package backlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"stacks-cli/internal/model"
	"stacks-cli/internal/refresh"
	"stacks-cli/internal/store"
)

var (
	ErrClosed = errors.New("engine closed")
	// ErrSuperseded marks a batch dropped because an earlier batch failed and the
	// resync that followed replaced the state it was planned against.
	ErrSuperseded = errors.New("batch superseded by resync")
)

const (
	defaultMaxInFlight  = 8
	defaultWriteTimeout = 30 * time.Second
)

// Outcome reports what happened to one gesture after it left the local state.
type Outcome struct {
	Seq        int64 `json:"seq"`
	Noop       bool  `json:"noop"`
	Writes     int   `json:"writes"`
	Failed     int   `json:"failed"`
	Resynced   bool  `json:"resynced"`
	Superseded bool  `json:"superseded"`
	Err        error `json:"-"`
}

func (o Outcome) OK() bool { return o.Err == nil }

type EngineOptions struct {
	WorkspaceID string
	Store       store.ItemStore
	Assigner    Assigner
	Planner     Planner
	Partitioner *Partitioner
	Notifier    refresh.Notifier
	Logger      log.FieldLogger

	// Origin identifies this view in refresh signals. A random id is used when empty.
	Origin string
	// MaxInFlight caps concurrent writes inside one batch.
	MaxInFlight  int
	WriteTimeout time.Duration
	// OnChange is called with the new local state after every change to it.
	OnChange func(Collection)
	Now      func() time.Time
}

// Engine owns the local ordered collection of one workspace and keeps it in step
// with an item store. Gestures apply to local state at once; their writes run
// later, one batch at a time.
type Engine struct {
	opts   EngineOptions
	part   Partitioner
	logger log.FieldLogger
	queue  *writeQueue

	mu   sync.Mutex
	coll Collection
	seq  int64
	// epoch moves on every resync that follows a failed batch; gen moves on
	// every resync.
	epoch int
	gen   int
}

func NewEngine(opts EngineOptions) *Engine {
	if opts.Assigner == nil {
		opts.Assigner = DenseAssigner{}
	}
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = defaultMaxInFlight
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	part := DefaultPartitioner()
	if opts.Partitioner != nil {
		part = *opts.Partitioner
	}
	logger := opts.Logger
	if logger == nil {
		l := log.New()
		l.SetLevel(log.WarnLevel)
		logger = l
	}
	return &Engine{
		opts:   opts,
		part:   part,
		logger: logger.WithFields(log.Fields{"workspace": opts.WorkspaceID, "origin": opts.Origin}),
		queue:  newWriteQueue(),
		coll:   NewCollection(nil, part, opts.Assigner.Compare),
	}
}

func (e *Engine) Origin() string { return e.opts.Origin }

func (e *Engine) WorkspaceID() string { return e.opts.WorkspaceID }

// Snapshot returns the current local state.
func (e *Engine) Snapshot() Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coll
}

// Close waits for queued batches and stops the write queue.
func (e *Engine) Close() { e.queue.close() }

// Load fetches the workspace. It goes through the write queue so it never
// overlaps a batch.
func (e *Engine) Load(ctx context.Context) error { return e.Resync(ctx) }

// Resync replaces the local state with the store's. An unavailable workspace
// yields an empty collection. Gestures still queued are planned again against
// the refetched state before they write.
func (e *Engine) Resync(ctx context.Context) error {
	done := make(chan error, 1)
	if !e.queue.push(func() { done <- e.resync(ctx, false) }) {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resync refetches the workspace. supersede drops every batch queued before it.
func (e *Engine) resync(ctx context.Context, supersede bool) error {
	items, err := e.opts.Store.ListItems(ctx, e.opts.WorkspaceID)
	if errors.Is(err, store.ErrWorkspaceUnavailable) {
		e.logger.Warn("workspace unavailable; showing empty backlog")
		items, err = nil, nil
	}
	if err != nil {
		e.logger.WithError(err).Error("resync failed")
		return err
	}
	e.mu.Lock()
	e.coll = e.coll.Replace(items)
	e.gen++
	if supersede {
		e.epoch++
	}
	for _, it := range items {
		if it.Version > e.seq {
			e.seq = it.Version
		}
	}
	snap := e.coll
	e.mu.Unlock()
	e.logger.WithField("items", len(items)).Debug("resynced")
	e.changed(snap)
	return nil
}

// Apply plans nothing: it assigns keys to a ready plan, applies it locally and
// waits for its batch.
func (e *Engine) Apply(ctx context.Context, plan Plan) Outcome {
	return wait(ctx, e.ApplyAsync(ctx, plan))
}

func (e *Engine) ApplyAsync(ctx context.Context, plan Plan) <-chan Outcome {
	return e.submit(ctx, func(Collection) (Plan, error) { return plan, nil })
}

// Drag plans dropping activeID onto overID against the current local state and
// applies it.
func (e *Engine) Drag(ctx context.Context, activeID, overID string) Outcome {
	return wait(ctx, e.DragAsync(ctx, activeID, overID))
}

func (e *Engine) DragAsync(ctx context.Context, activeID, overID string) <-chan Outcome {
	return e.submit(ctx, func(c Collection) (Plan, error) {
		return e.opts.Planner.PlanDrag(c, activeID, overID)
	})
}

// Do runs a named action on one item.
func (e *Engine) Do(ctx context.Context, action Action, id string) Outcome {
	return wait(ctx, e.DoAsync(ctx, action, id))
}

func (e *Engine) DoAsync(ctx context.Context, action Action, id string) <-chan Outcome {
	return e.submit(ctx, func(c Collection) (Plan, error) {
		return e.opts.Planner.PlanAction(c, action, id)
	})
}

func (e *Engine) submit(ctx context.Context, planFn func(Collection) (Plan, error)) <-chan Outcome {
	out := make(chan Outcome, 1)

	e.mu.Lock()
	diff, o, ok := e.planLocked(planFn)
	if !ok {
		e.mu.Unlock()
		out <- o
		return out
	}
	b := batch{replan: planFn, diff: diff, epoch: e.epoch, gen: e.gen}
	wctx := context.WithoutCancel(ctx)
	// Queued under e.mu so batches write in the order they were applied locally.
	if !e.queue.push(func() { out <- e.persist(wctx, b) }) {
		e.mu.Unlock()
		out <- Outcome{Err: ErrClosed}
		return out
	}
	e.coll = e.coll.WithOrder(diff.Order)
	snap := e.coll
	e.mu.Unlock()
	e.changed(snap)
	return out
}

// planLocked plans against the local state and assigns keys. ok is false when
// there is nothing to write, and o then says why.
func (e *Engine) planLocked(planFn func(Collection) (Plan, error)) (diff Diff, o Outcome, ok bool) {
	plan, err := planFn(e.coll)
	if err != nil {
		return Diff{}, Outcome{Err: err}, false
	}
	if plan.Noop || len(plan.NewOrder) == 0 {
		return Diff{}, Outcome{Noop: true}, false
	}
	diff, err = e.opts.Assigner.Assign(plan.NewOrder, plan.StatusChange)
	if err != nil {
		return Diff{}, Outcome{Err: err}, false
	}
	if diff.Empty() {
		return Diff{}, Outcome{Noop: true}, false
	}
	return diff, Outcome{}, true
}

// batch is one queued gesture. replan recomputes it when a resync replaced the
// state it was planned against.
type batch struct {
	replan func(Collection) (Plan, error)
	diff   Diff
	epoch  int
	gen    int
}

type idPatch struct {
	id    string
	patch model.Patch
}

// persist runs one batch. Every write is issued even when another fails; any
// failure ends in a full resync.
func (e *Engine) persist(ctx context.Context, b batch) Outcome {
	e.mu.Lock()
	if b.epoch != e.epoch {
		e.mu.Unlock()
		e.logger.Info("batch superseded by resync")
		return Outcome{Superseded: true, Resynced: true, Err: ErrSuperseded}
	}
	replanned := b.gen != e.gen
	if replanned {
		diff, o, ok := e.planLocked(b.replan)
		if !ok {
			e.mu.Unlock()
			e.logger.WithError(o.Err).Debug("gesture replanned after resync: nothing to write")
			return o
		}
		b.diff = diff
		e.coll = e.coll.WithOrder(diff.Order)
	}
	seq := e.nextSeqLocked()
	snap := e.coll
	e.mu.Unlock()
	if replanned {
		e.changed(snap)
	}

	patches := make([]idPatch, 0, len(b.diff.Changed))
	for _, it := range b.diff.Changed {
		p := b.diff.Patches[it.ID]
		p.BatchSeq = seq
		patches = append(patches, idPatch{id: it.ID, patch: p})
	}
	o := Outcome{Seq: seq, Writes: len(patches)}
	logger := e.logger.WithFields(log.Fields{"seq": seq, "writes": len(patches), "replanned": replanned})

	ctx, cancel := context.WithTimeout(ctx, e.opts.WriteTimeout)
	defer cancel()

	errs := make([]error, len(patches))
	var g errgroup.Group
	g.SetLimit(e.opts.MaxInFlight)
	for i, p := range patches {
		g.Go(func() error {
			errs[i] = e.opts.Store.UpdateItem(ctx, p.id, p.patch)
			return nil
		})
	}
	_ = g.Wait()

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		o.Failed++
		if first == nil {
			first = err
		}
		logger.WithError(err).WithField("item", patches[i].id).Warn("write failed")
	}
	if o.Failed == 0 {
		logger.Debug("batch persisted")
		e.notify(ctx, seq)
		return o
	}

	o.Err = &BatchError{Seq: seq, Failed: o.Failed, Total: len(patches), First: first}
	if err := e.resync(ctx, true); err != nil {
		logger.WithError(err).Error("resync after failed batch")
	} else {
		o.Resynced = true
	}
	return o
}

// Delete removes id locally and deletes it from the store. A failed delete puts
// the item back where it was.
func (e *Engine) Delete(ctx context.Context, id string) Outcome {
	return wait(ctx, e.DeleteAsync(ctx, id))
}

func (e *Engine) DeleteAsync(ctx context.Context, id string) <-chan Outcome {
	out := make(chan Outcome, 1)

	e.mu.Lock()
	next, ts, ok := e.coll.Without(id)
	if !ok {
		e.mu.Unlock()
		out <- Outcome{Err: NotFoundError{Kind: "item", ID: id}}
		return out
	}
	wctx := context.WithoutCancel(ctx)
	if !e.queue.push(func() { out <- e.remove(wctx, ts) }) {
		e.mu.Unlock()
		out <- Outcome{Err: ErrClosed}
		return out
	}
	e.coll = next
	e.mu.Unlock()
	e.changed(next)
	return out
}

func (e *Engine) remove(ctx context.Context, ts Tombstone) Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.opts.WriteTimeout)
	defer cancel()

	e.mu.Lock()
	seq := e.nextSeqLocked()
	e.mu.Unlock()
	o := Outcome{Seq: seq, Writes: 1}
	err := e.opts.Store.DeleteItem(ctx, ts.Item.ID)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		e.logger.WithField("item", ts.Item.ID).Debug("item deleted")
		e.mu.Lock()
		next, _, found := e.coll.Without(ts.Item.ID)
		if found {
			e.coll = next
		}
		e.mu.Unlock()
		if found {
			e.changed(next)
		}
		e.notify(ctx, seq)
		return o
	}
	e.logger.WithError(err).WithField("item", ts.Item.ID).Warn("delete failed; restoring item")
	e.restore(ts)
	o.Failed = 1
	o.Err = err
	return o
}

func (e *Engine) restore(ts Tombstone) {
	e.mu.Lock()
	e.coll = e.coll.Restore(ts)
	snap := e.coll
	e.mu.Unlock()
	e.changed(snap)
}

// Follow resyncs whenever another view signals a change to this workspace. It
// returns when ctx is done or signals is closed.
func (e *Engine) Follow(ctx context.Context, signals <-chan refresh.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if sig.WorkspaceID != e.opts.WorkspaceID || sig.Origin == e.opts.Origin {
				continue
			}
			e.logger.WithFields(log.Fields{"from": sig.Origin, "seq": sig.Seq}).Debug("refresh signal")
			if err := e.Resync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.WithError(err).Warn("resync on refresh signal")
			}
		}
	}
}

func (e *Engine) notify(ctx context.Context, seq int64) {
	if e.opts.Notifier == nil {
		return
	}
	sig := refresh.Signal{WorkspaceID: e.opts.WorkspaceID, Origin: e.opts.Origin, Seq: seq, At: e.opts.Now().UTC()}
	if err := e.opts.Notifier.Notify(ctx, sig); err != nil {
		e.logger.WithError(err).Warn("refresh notify failed")
	}
}

func (e *Engine) changed(c Collection) {
	if e.opts.OnChange != nil {
		e.opts.OnChange(c)
	}
}

// nextSeqLocked returns a batch sequence above every sequence this engine has
// issued or observed. Wall-clock microseconds keep sequences from separate
// processes roughly comparable.
func (e *Engine) nextSeqLocked() int64 {
	seq := e.opts.Now().UnixMicro()
	if seq <= e.seq {
		seq = e.seq + 1
	}
	e.seq = seq
	return seq
}

func wait(ctx context.Context, ch <-chan Outcome) Outcome {
	select {
	case o := <-ch:
		return o
	case <-ctx.Done():
		return Outcome{Err: ctx.Err()}
	}
}
