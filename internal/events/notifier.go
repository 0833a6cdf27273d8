package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const changeChannel = "queue_changes"

// Subscription delivers barber IDs whose queues changed. The caller owns
// the handle and must Close it when done.
type Subscription struct {
	C     <-chan string
	close func()
	once  sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// RedisNotifier fans queue-change notifications out through Redis pub/sub
// so every API instance sees changes made by its peers.
type RedisNotifier struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zerolog.Logger) *RedisNotifier {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "notifier").Logger()
	}
	return &RedisNotifier{client: client, log: log}
}

func (n *RedisNotifier) NotifyChange(ctx context.Context, barberID string) error {
	if n.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := n.client.Publish(ctx, changeChannel, barberID).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe opens a change stream. Messages for other barbers are filtered
// out when barberID is non-empty.
func (n *RedisNotifier) Subscribe(ctx context.Context, barberID string) (*Subscription, error) {
	if n.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	pubsub := n.client.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan string, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if barberID != "" && msg.Payload != barberID {
					continue
				}
				select {
				case out <- msg.Payload:
				default:
					n.log.Warn().Str("barber_id", msg.Payload).Msg("subscriber is slow, dropping notification")
				}
			}
		}
	}()

	return &Subscription{
		C: out,
		close: func() {
			close(done)
			pubsub.Close()
		},
	}, nil
}

// LocalNotifier is the in-process fallback used when Redis is unavailable.
// It only reaches subscribers inside the same process.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[int]*localSub
	next int
}

type localSub struct {
	barberID string
	ch       chan string
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[int]*localSub)}
}

func (n *LocalNotifier) NotifyChange(ctx context.Context, barberID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		if sub.barberID != "" && sub.barberID != barberID {
			continue
		}
		select {
		case sub.ch <- barberID:
		default:
		}
	}
	return nil
}

func (n *LocalNotifier) Subscribe(ctx context.Context, barberID string) (*Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	sub := &localSub{barberID: barberID, ch: make(chan string, 16)}
	n.subs[id] = sub

	return &Subscription{
		C: sub.ch,
		close: func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(sub.ch)
		},
	}, nil
}
