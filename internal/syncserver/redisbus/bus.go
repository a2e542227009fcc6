// Package redisbus is an optional cross-process fan-out transport: when
// several dsyncd processes share one document (behind a TCP load
// balancer, say), a Bus lets a master update applied on one process reach
// the sessions held in another process's memory via Redis pub/sub. The
// single-process in-memory fan-out in internal/syncserver remains the
// default; a Bus is purely additive.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MasterUpdate is published whenever a process advances a document's
// master content, so peer processes can adopt the same state.
type MasterUpdate struct {
	ProcessID string `json:"process_id"`
	Document  string `json:"document"`
	Content   string `json:"content"`
	Version   uint64 `json:"version"`
}

// Bus publishes and receives MasterUpdate events for one document over a
// Redis pub/sub channel keyed by document name.
type Bus struct {
	client    *redis.Client
	processID string
	channel   string
}

// New returns a Bus for documentName, using client's pub/sub. The
// processID distinguishes this process's own publications so Subscribe's
// channel never echoes updates this same process produced.
func New(client *redis.Client, documentName string) *Bus {
	return &Bus{
		client:    client,
		processID: uuid.NewString(),
		channel:   "dsyncd:master:" + documentName,
	}
}

// Publish announces a new master version to every other subscribed
// process.
func (b *Bus) Publish(ctx context.Context, content string, version uint64, documentName string) error {
	msg := MasterUpdate{ProcessID: b.processID, Document: documentName, Content: content, Version: version}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redisbus: marshal update: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redisbus: publish: %w", err)
	}
	return nil
}

// Subscribe starts listening on the document's channel and returns a
// channel of updates published by other processes. The returned channel
// is closed when ctx is cancelled or the subscription is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan MasterUpdate, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redisbus: subscribe: %w", err)
	}

	updates := make(chan MasterUpdate, 16)
	go func() {
		defer close(updates)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var update MasterUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					continue
				}
				if update.ProcessID == b.processID {
					continue
				}
				select {
				case updates <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}

// Close releases the underlying Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}
