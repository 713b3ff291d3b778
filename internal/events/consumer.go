package events

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Handler processes one raw message value.
type Handler func(ctx context.Context, value []byte) error

// fetchCommitter is the part of *kafka.Reader the consumer needs.
type fetchCommitter interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds webhook payloads from a topic into a Handler.
//
// A group reader hands out messages in order and a commit covers everything
// before it, so a failed message is retried in place until it succeeds, turns
// out Permanent, or ctx ends. Permanent failures are committed and dropped.
type Consumer struct {
	reader     fetchCommitter
	handle     Handler
	Permanent  func(error) bool
	logger     *zap.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewConsumer(cfg ConsumerConfig, h Handler, logger *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}), h, logger)
}

func newConsumer(r fetchCommitter, h Handler, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:     r,
		handle:     h,
		Permanent:  func(error) bool { return false },
		logger:     logger,
		backoff:    500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			c.logger.Warn("kafka fetch", zap.Error(err))
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		if !c.process(ctx, m) {
			return
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// process reports false only when ctx ended before m was settled.
func (c *Consumer) process(ctx context.Context, m kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, m.Value)
		if err == nil {
			return true
		}
		if c.Permanent(err) {
			c.logger.Warn("dropping invalid message", zap.Int64("offset", m.Offset), zap.Error(err))
			return true
		}
		c.logger.Error("handle failed, retrying",
			zap.Int64("offset", m.Offset),
			zap.Int("partition", m.Partition),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if !sleep(ctx, wait) {
			return false
		}
		wait = min(wait*2, c.maxBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
