// Package subscription keeps a session's cache in step with changes made by
// other sessions, delivered as change events over Redis pub/sub.
package subscription

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-client/domain"
	"kanban-client/mutation"
)

// Invalidator marks cached keys stale. *storage.Store implements it.
type Invalidator interface {
	Invalidate(keys ...domain.Key)
	InvalidateWhere(pred func(domain.Key) bool)
}

// ReconnectDelay is how long Listen waits before resubscribing after the
// channel closed.
var ReconnectDelay = time.Second

// Listen invalidates the keys each published change event touches until ctx
// is done. It resubscribes whenever the pub/sub channel closes.
func Listen(ctx context.Context, rc *redis.Client, channel string, inv Invalidator, policy mutation.Policy, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	for {
		sub := rc.Subscribe(ctx, channel)
		consume(ctx, sub.Channel(), inv, policy, logger)
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.WithField("channel", channel).Warn("subscription.reconnect")
		select {
		case <-ctx.Done():
			return
		case <-time.After(ReconnectDelay):
		}
	}
}

func consume(ctx context.Context, ch <-chan *redis.Message, inv Invalidator, policy mutation.Policy, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev domain.ChangeEvent
			if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
				logger.WithError(err).Warn("subscription.decode.failed")
				continue
			}
			Apply(inv, policy, ev)
			logger.WithFields(log.Fields{
				"entity": ev.Entity,
				"type":   ev.Type,
				"id":     ev.ID,
			}).Debug("subscription.invalidated")
		}
	}
}

// Apply invalidates what ev touches.
func Apply(inv Invalidator, policy mutation.Policy, ev domain.ChangeEvent) {
	res := policy.ForEvent(ev)
	if len(res.Keys) > 0 {
		inv.Invalidate(res.Keys...)
	}
	if res.Match != nil {
		inv.InvalidateWhere(res.Match)
	}
}
