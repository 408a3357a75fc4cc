package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/ledger"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

// Result is one published evaluation of a view. Version is the ledger version
// observed before the snapshot was taken, so the value reflects at least
// every change up to Version.
type Result[T any] struct {
	Version uint64
	Value   T
	Err     error
}

// ComputeFunc derives a value from one consistent ledger snapshot.
type ComputeFunc[T any] func(ctx context.Context, r ledger.Reader) (T, error)

// View keeps a derived value up to date with the ledger.
//
// Run subscribes to the store's broker and recomputes whenever a change
// touches one of the view's topics. Bursts of changes collapse into one
// recomputation, and a computation still running when a newer change arrives
// is cancelled and restarted. Subscribers always receive the latest result
// and never a stale one after a newer one.
type View[T any] struct {
	name    string
	store   ledger.Store
	topics  []ledger.Topic
	compute ComputeFunc[T]
	inst    *instruments

	signal chan struct{}

	mu      sync.Mutex
	current Result[T]
	ready   bool
	nextSub int
	subs    map[int]chan Result[T]
}

// NewView creates a view over the given topics. It does nothing until Run is called.
func NewView[T any](name string, store ledger.Store, topics []ledger.Topic, compute ComputeFunc[T]) *View[T] {
	return newView(name, store, topics, compute, newInstruments())
}

func newView[T any](name string, store ledger.Store, topics []ledger.Topic, compute ComputeFunc[T], inst *instruments) *View[T] {
	return &View[T]{
		name:    name,
		store:   store,
		topics:  topics,
		compute: compute,
		inst:    inst,
		signal:  make(chan struct{}, 1),
		subs:    make(map[int]chan Result[T]),
	}
}

// Name returns the view's name.
func (v *View[T]) Name() string {
	return v.name
}

// Invalidate schedules a recomputation. It never blocks.
func (v *View[T]) Invalidate() {
	select {
	case v.signal <- struct{}{}:
	default:
	}
}

// Current returns the last published result. ok is false before the first
// evaluation finished.
func (v *View[T]) Current() (Result[T], bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.ready
}

// Subscribe returns a channel receiving every newer result. An unread result
// is replaced by a newer one. The current result, if any, is delivered first.
func (v *View[T]) Subscribe() (<-chan Result[T], func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextSub
	v.nextSub++
	ch := make(chan Result[T], 1)
	if v.ready {
		ch <- v.current
	}
	v.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subs, id)
			close(ch)
		})
	}
}

// Run evaluates the view once and then after every relevant change, until
// ctx is cancelled.
func (v *View[T]) Run(ctx context.Context) {
	changes, cancel := v.store.Changes().Subscribe()
	defer cancel()

	go func() {
		for change := range changes {
			if change.Touches(v.topics...) {
				v.Invalidate()
			}
		}
	}()

	logger.Log.Debug().Str("view", v.name).Msg("View started")
	defer logger.Log.Debug().Str("view", v.name).Msg("View stopped")

	pending := true
	for {
		if !pending {
			select {
			case <-ctx.Done():
				return
			case <-v.signal:
			}
		}

		res, superseded := v.evaluateOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if superseded {
			pending = true
			continue
		}
		pending = false
		v.publish(res)
	}
}

// evaluateOnce computes in the background and gives up as soon as a newer
// invalidation arrives.
func (v *View[T]) evaluateOnce(ctx context.Context) (Result[T], bool) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		done <- v.Evaluate(cctx)
	}()

	select {
	case res := <-done:
		return res, false
	case <-v.signal:
		cancel()
		<-done
		return Result[T]{}, true
	case <-ctx.Done():
		cancel()
		<-done
		return Result[T]{}, true
	}
}

// Evaluate computes the view from a fresh snapshot without publishing.
func (v *View[T]) Evaluate(ctx context.Context) Result[T] {
	start := time.Now()
	res := Result[T]{Version: v.store.Changes().Version()}

	ctx, span := v.inst.tracer.Start(ctx, "view."+v.name)
	res.Err = v.store.View(ctx, func(r ledger.Reader) error {
		value, err := v.compute(ctx, r)
		if err != nil {
			return err
		}
		res.Value = value
		return nil
	})
	endSpan(span, res.Err)

	outcome := "ok"
	switch {
	case errors.Is(res.Err, context.Canceled):
		outcome = "cancelled"
	case res.Err != nil:
		outcome = "error"
		logger.Log.Error().Err(res.Err).Str("view", v.name).Msg("View computation failed")
	}
	v.inst.recordCompute(context.WithoutCancel(ctx), v.name, outcome, time.Since(start))
	return res
}

func (v *View[T]) publish(res Result[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ready && res.Version < v.current.Version {
		return
	}
	v.current = res
	v.ready = true

	for _, ch := range v.subs {
		select {
		case <-ch:
		default:
		}
		ch <- res
	}
}
