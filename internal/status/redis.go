package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisSink publishes status events over Redis Pub/Sub, one channel per run.
type RedisSink struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewRedisSink connects to the Redis instance at url (redis://...).
func NewRedisSink(url string, logger zerolog.Logger) (*RedisSink, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis sink: parse url: %w", err)
	}
	return &RedisSink{rdb: redis.NewClient(opt), logger: logger}, nil
}

func (s *RedisSink) Publish(evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		s.logger.Warn().Err(err).Str("run", evt.RunID).Msg("marshal status event")
		return
	}
	if err := s.rdb.Publish(ctx, ChannelName(evt.RunID), data).Err(); err != nil {
		s.logger.Warn().Err(err).Str("run", evt.RunID).Msg("publish status event")
	}
}

// Subscribe streams the events of one run until ctx is done.
func (s *RedisSink) Subscribe(ctx context.Context, runID string) (<-chan Event, error) {
	ps := s.rdb.Subscribe(ctx, ChannelName(runID))
	// initial receive confirms the subscription
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis sink: subscribe %s: %w", runID, err)
	}
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func (s *RedisSink) Close() error { return s.rdb.Close() }

// ChannelName is the Pub/Sub channel of a run.
func ChannelName(runID string) string { return "routeopt:run:" + runID }
