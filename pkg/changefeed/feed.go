// Package changefeed carries "document changed" notifications from the
// writer to every subscriber of the collection. Notifications are published
// on a Watermill go-channel topic per collection and, when Redis is
// configured, fanned out to the other instances of the service.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"helpdesk-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "helpdesk_document_changes"

// Change says that a document was written. It carries no body: receivers
// re-read the document, so a lost or reordered change only delays a
// snapshot and never delivers a stale one.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Revision   int64  `json:"revision"`
	Origin     string `json:"origin"`
}

type Feed struct {
	pubSub *gochannel.GoChannel
	rdb    *redis.Client
	origin string
	logger logger.ILogger
}

// NewFeed wires a feed over pubSub. rdb may be nil for a single instance.
// origin identifies this instance so the Redis bridge skips its own echoes.
func NewFeed(pubSub *gochannel.GoChannel, rdb *redis.Client, origin string, log logger.ILogger) *Feed {
	if origin == "" {
		origin = watermill.NewShortUUID()
	}
	return &Feed{
		pubSub: pubSub,
		rdb:    rdb,
		origin: origin,
		logger: log,
	}
}

// NewLocalFeed is a single instance feed with its own go-channel.
func NewLocalFeed(log logger.ILogger) *Feed {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	return NewFeed(pubSub, nil, "", log)
}

func Topic(collection string) string {
	return "changes." + collection
}

func (f *Feed) Origin() string { return f.origin }

// Publish notifies local subscribers and, through Redis, the other
// instances. A Redis failure is logged; local delivery is what the caller
// depends on.
func (f *Feed) Publish(ctx context.Context, change Change) error {
	change.Origin = f.origin
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := f.publishLocal(change.Collection, payload); err != nil {
		return err
	}

	if f.rdb != nil {
		if err := f.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
			f.logger.Warn("ChangeFeed", "Redis publish failed", map[string]interface{}{
				"collection": change.Collection,
				"id":         change.ID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

func (f *Feed) publishLocal(collection string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := f.pubSub.Publish(Topic(collection), msg); err != nil {
		return fmt.Errorf("publish change for %s: %w", collection, err)
	}
	return nil
}

// Subscribe returns the changes of one collection until ctx is cancelled,
// after which the channel is closed.
func (f *Feed) Subscribe(ctx context.Context, collection string) (<-chan Change, error) {
	messages, err := f.pubSub.Subscribe(ctx, Topic(collection))
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", collection, err)
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var change Change
			err := json.Unmarshal(msg.Payload, &change)
			// Ack unconditionally: a malformed message will never decode.
			msg.Ack()
			if err != nil {
				f.logger.Warn("ChangeFeed", "Dropping malformed change", map[string]interface{}{"error": err.Error()})
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// Run bridges changes published by other instances into the local topics.
// Without Redis it just waits for ctx.
func (f *Feed) Run(ctx context.Context) error {
	if f.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := f.rdb.Subscribe(ctx, redisChannel)
	defer sub.Close()
	ch := sub.Channel()

	f.logger.Info("ChangeFeed", "Redis bridge started", map[string]interface{}{"origin": f.origin})
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				f.logger.Warn("ChangeFeed", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if change.Origin == f.origin {
				continue
			}
			if err := f.publishLocal(change.Collection, []byte(msg.Payload)); err != nil {
				f.logger.Error("ChangeFeed", "Failed to republish remote change", map[string]interface{}{"error": err})
			}
		}
	}
}

func (f *Feed) Close() error {
	return f.pubSub.Close()
}
