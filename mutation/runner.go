// Package mutation runs optimistic mutations against the entity store: every
// intent is applied locally at once, sent to the server in the background,
// then either kept or rolled back, and finally reconciled by invalidation.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kanban-client/domain"
	"kanban-client/storage"
)

// errNoop is returned by an apply step that found nothing to change.
var errNoop = errors.New("mutation: no-op")

// Options configures a Runner.
type Options struct {
	Policy Policy
	// Timeout bounds each remote call. Defaults to 30s.
	Timeout time.Duration
	Logger  *log.Logger
	Tracer  trace.Tracer
	IDs     *domain.IDAllocator
	Now     func() time.Time
}

// Runner executes intents. It is safe for concurrent use; intents touching
// the same keys are not serialized and the last optimistic write wins until
// each settles.
type Runner struct {
	store  *storage.Store
	remote Remote
	opts   Options
	log    *log.Logger
	tracer trace.Tracer

	wg sync.WaitGroup
}

// New creates a runner writing to store and calling remote.
func New(store *storage.Store, remote Remote, opts Options) *Runner {
	if store == nil {
		panic("mutation.New: store is nil")
	}
	if remote == nil {
		panic("mutation.New: remote is nil")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("kanban-client/mutation")
	}
	if opts.IDs == nil {
		opts.IDs = domain.NewIDAllocator()
	}
	if opts.Policy.Rules == nil {
		opts.Policy = DefaultPolicy(opts.Policy.EmbedCardSummaries)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		store:  store,
		remote: remote,
		opts:   opts,
		log:    opts.Logger,
		tracer: opts.Tracer,
	}
}

// Policy returns the reconciliation policy in use.
func (r *Runner) Policy() Policy { return r.opts.Policy }

// Close waits for every issued remote call to settle.
func (r *Runner) Close() {
	r.wg.Wait()
}

// plan describes one intent: the keys it captures, its optimistic
// transform, the remote call and, for PatchInPlace rules, how to write the
// server result back.
type plan[T any] struct {
	intent Intent
	scope  Scope
	keys   []domain.Key
	apply  func(tx *storage.Tx) error
	call   func(ctx context.Context) (T, error)
	patch  func(tx *storage.Tx, v T) error
}

// run is cancel, snapshot, apply, call remote, commit or rollback, and
// invalidate. Everything up to the remote call happens before it returns.
func run[T any](ctx context.Context, r *Runner, p plan[T]) (*Future[T], error) {
	ctx, span := r.tracer.Start(ctx, "mutation."+string(p.intent),
		trace.WithAttributes(attribute.String("mutation.intent", string(p.intent))))
	logger := r.log.WithField("intent", string(p.intent))

	snap, err := r.store.Mutate(p.keys, p.apply)
	if errors.Is(err, errNoop) {
		span.SetAttributes(attribute.Bool("mutation.noop", true))
		span.End()
		logger.Debug("mutation.noop")
		var zero T
		return settled(zero, nil), nil
	}
	if err != nil {
		perr := precondition(p.intent, err)
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Error())
		span.End()
		logger.WithError(err).Debug("mutation.precondition")
		return nil, perr
	}
	logger.WithField("keys", keyStrings(snap.Keys())).Debug("mutation.apply")

	fut := newFuture[T]()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.Timeout)
		defer cancel()
		v, err := p.call(callCtx)

		inv := r.opts.Policy.Invalidation(snap.Keys(), p.scope)
		if err != nil {
			r.store.Restore(snap)
			r.invalidate(inv)
			merr := classify(p.intent, err)
			span.SetAttributes(attribute.Bool("mutation.rollback", true))
			span.RecordError(merr)
			span.SetStatus(codes.Error, merr.Error())
			logger.WithError(err).WithFields(log.Fields{
				"kind": merr.Kind.String(),
				"keys": keyStrings(snap.Keys()),
			}).Warn("mutation.rollback")
			span.End()
			var zero T
			fut.resolve(zero, merr)
			return
		}

		if p.patch != nil && r.opts.Policy.Rule(p.intent).Strategy == PatchInPlace {
			if perr := r.store.Batch(func(tx *storage.Tx) error { return p.patch(tx, v) }); perr != nil {
				logger.WithError(perr).Warn("mutation.patch.failed")
			}
		}
		r.invalidate(inv)
		logger.Debug("mutation.commit")
		span.End()
		fut.resolve(v, nil)
	}()
	return fut, nil
}

func (r *Runner) invalidate(inv Invalidation) {
	r.store.Invalidate(inv.Keys...)
	if inv.Match != nil {
		r.store.InvalidateWhere(inv.Match)
	}
}

type namedID struct {
	name string
	id   domain.ID
}

// requireCommitted refuses ids the server has not issued: the remote API
// cannot address them.
func requireCommitted(ids ...namedID) error {
	for _, n := range ids {
		if n.id.IsZero() {
			return fmt.Errorf("%s is required", n.name)
		}
		if n.id.IsPending() {
			return fmt.Errorf("%s %s is not confirmed by the server yet", n.name, n.id)
		}
	}
	return nil
}

func keyStrings(keys []domain.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
