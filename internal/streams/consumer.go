package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultConsumer consumes fax results from Redis Streams
type ResultConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
	logger       *slog.Logger
}

// NewResultConsumer creates a new ResultConsumer instance
func NewResultConsumer(redisURL, consumerName string, logger *slog.Logger) (*ResultConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	return newResultConsumer(context.Background(), redis.NewClient(opts), consumerName, logger)
}

func newResultConsumer(ctx context.Context, client *redis.Client, consumerName string, logger *slog.Logger) (*ResultConsumer, error) {
	// Start ID "0" means read from beginning if group is new
	err := client.XGroupCreateMkStream(ctx, StreamFaxResults, GroupGistWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &ResultConsumer{
		rdb:          client,
		groupName:    GroupGistWorkers,
		consumerName: consumerName,
		logger:       logger,
	}, nil
}

// ConsumeResults runs a blocking loop consuming results from the stream
func (c *ResultConsumer) ConsumeResults(ctx context.Context, handler func(context.Context, FaxResult) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamFaxResults, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads return a timeout when no messages arrive
			// within the Block duration; this is normal.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			c.logger.Error("Failed to read from stream", "error", err)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.process(ctx, message, handler)
			}
		}
	}
}

func (c *ResultConsumer) process(ctx context.Context, message redis.XMessage, handler func(context.Context, FaxResult) error) {
	payloadStr, ok := message.Values["payload"].(string)
	if !ok {
		c.logger.Error("Invalid message payload", "message_id", message.ID)
		return
	}

	var result FaxResult
	if err := json.Unmarshal([]byte(payloadStr), &result); err != nil {
		c.logger.Error("Failed to unmarshal result", "error", err, "message_id", message.ID)
		return
	}

	if err := handler(ctx, result); err != nil {
		c.logger.Error("Handler failed", "error", err, "user_id", result.UID, "date_key", result.DateKey)
		// Message stays in PEL for retry, don't ACK
		return
	}

	if err := c.rdb.XAck(ctx, StreamFaxResults, c.groupName, message.ID).Err(); err != nil {
		c.logger.Error("Failed to ACK message", "error", err, "message_id", message.ID)
	}
}

// Close closes the Redis client connection
func (c *ResultConsumer) Close() error {
	return c.rdb.Close()
}

// StartResultConsumer starts the result consumer in a background goroutine
// and returns a stop function
func StartResultConsumer(redisURL string, recorder DeliveryRecorder, logger *slog.Logger) (stop func(), err error) {
	consumer, err := NewResultConsumer(redisURL, "gist-worker-1", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create result consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := consumer.ConsumeResults(ctx, HandleFaxResult(recorder, logger)); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Result consumer stopped with error", "error", err)
			}
		}
	}()

	logger.Info("Fax result consumer started", "stream", StreamFaxResults, "group", GroupGistWorkers)

	return func() {
		cancel()
		consumer.Close()
	}, nil
}
