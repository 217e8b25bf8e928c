// Package session wires the REST client, the entity store and the mutation
// runner into the object a UI talks to: typed reads per query key, change
// notifications and one trigger per mutation intent.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-client/client"
	"kanban-client/config"
	"kanban-client/domain"
	"kanban-client/mutation"
	"kanban-client/storage"
	"kanban-client/subscription"
)

// Session owns one entity cache. It is safe for concurrent use.
type Session struct {
	client *client.Client
	store  *storage.Store
	runner *mutation.Runner
	redis  *redis.Client
	log    *log.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a session from cfg. When cfg.Redis is set, confirmed values are
// mirrored to Redis and change events from other sessions are applied.
func New(cfg config.Client, logger *log.Logger) (*Session, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("session: missing API URL")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	c := client.New(cfg.APIURL, cfg.Token, logger)
	if cfg.PageSize > 0 {
		c.PerPage = cfg.PageSize
	}
	opts := storage.Options{
		Fetcher:      c,
		StaleTime:    cfg.StaleTime,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       logger,
	}
	var rc *redis.Client
	if cfg.Redis != nil {
		rc = redis.NewClient(cfg.Redis)
		opts.Mirror = storage.NewRedisMirror(rc, cfg.CachePrefix, cfg.CacheTTL, logger)
	}
	store := storage.New(opts)
	runner := mutation.New(store, c, mutation.Options{
		Policy:  mutation.DefaultPolicy(cfg.EmbedCardSummaries),
		Timeout: cfg.MutationTimeout,
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client: c,
		store:  store,
		runner: runner,
		redis:  rc,
		log:    logger,
		cancel: cancel,
	}
	if rc != nil && cfg.ChangesChannel != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			subscription.Listen(ctx, rc, cfg.ChangesChannel, store, runner.Policy(), logger)
		}()
	}
	logger.WithFields(log.Fields{
		"api":    cfg.APIURL,
		"mirror": rc != nil,
	}).Info("session.started")
	return s, nil
}

// Close stops the change listener, waits for pending mutations and their
// callbacks, and releases the cache.
func (s *Session) Close() error {
	s.cancel()
	s.runner.Close()
	s.wg.Wait()
	s.store.Close()
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// Store exposes the underlying cache.
func (s *Session) Store() *storage.Store { return s.store }

// Watch calls fn after every change to key and starts a fetch when the key
// is missing or stale. Call the returned function to stop watching.
func (s *Session) Watch(key domain.Key, fn func(storage.Event)) (stop func()) {
	return s.store.Observe(key, fn)
}

// Invalidate marks keys stale; watched keys are refetched.
func (s *Session) Invalidate(keys ...domain.Key) {
	s.store.Invalidate(keys...)
}

func (s *Session) Boards(ctx context.Context, workspaceID domain.ID) (domain.Boards, error) {
	return storage.ReadAs[domain.Boards](ctx, s.store, domain.BoardsKey(workspaceID))
}

func (s *Session) Board(ctx context.Context, id domain.ID) (domain.Board, error) {
	return storage.ReadAs[domain.Board](ctx, s.store, domain.BoardKey(id))
}

func (s *Session) Lists(ctx context.Context, boardID domain.ID) (domain.Lists, error) {
	return storage.ReadAs[domain.Lists](ctx, s.store, domain.ListsKey(boardID))
}

func (s *Session) Cards(ctx context.Context, listID, boardID domain.ID) (domain.Cards, error) {
	return storage.ReadAs[domain.Cards](ctx, s.store, domain.CardsKey(listID, boardID))
}

func (s *Session) Card(ctx context.Context, id domain.ID) (domain.Card, error) {
	return storage.ReadAs[domain.Card](ctx, s.store, domain.CardKey(id))
}

func (s *Session) CustomFields(ctx context.Context, boardID domain.ID) (domain.CustomFields, error) {
	return storage.ReadAs[domain.CustomFields](ctx, s.store, domain.CustomFieldsKey(boardID))
}
