package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/planify/analytics-service/internal/config"
	"github.com/planify/analytics-service/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer runs one kafka reader per topic, all in the same consumer group.
// Each message is dispatched then committed: a message that still fails after
// the dispatcher's retries is logged with its raw payload for replay and
// dropped, never blocking the partition.
type Consumer struct {
	cfg        config.KafkaConfig
	dispatcher *Dispatcher
	log        *zap.SugaredLogger

	// newReader is a seam for tests; nil means kafka-go readers.
	newReader func(topic string) reader
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewConsumer constructs consumer.
func NewConsumer(cfg config.KafkaConfig, d *Dispatcher, logger *zap.SugaredLogger) *Consumer {
	c := &Consumer{cfg: cfg, dispatcher: d, log: logger}
	c.newReader = func(topic string) reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return c
}

// Run blocks until ctx is cancelled and all topic loops have drained.
func (c *Consumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, topic := range c.cfg.Topics {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			c.consumeTopic(ctx, topic)
		}(topic)
	}
	wg.Wait()
}

func (c *Consumer) consumeTopic(ctx context.Context, topic string) {
	r := c.newReader(topic)
	defer func() {
		if err := r.Close(); err != nil {
			c.log.Errorf("close reader %s: %v", topic, err)
		}
	}()

	c.log.Infof("consuming topic %s", topic)

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Infof("topic %s consumer stopped", topic)
				return
			}
			c.log.Errorf("fetch %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		metrics.MessagesConsumed.WithLabelValues(topic).Inc()
		start := time.Now()

		if err := c.dispatcher.Dispatch(ctx, topic, msg.Value); err != nil {
			c.handleFailure(topic, msg.Value, err)
		} else {
			metrics.MessagesProcessed.WithLabelValues(topic).Inc()
		}
		metrics.ProcessingDuration.Observe(float64(time.Since(start).Milliseconds()))

		// At-least-once with drop-and-log: the offset moves even when the
		// message failed, the log line is the replay record.
		if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Errorf("commit %s: %v", topic, err)
		}
	}
}

// handleFailure is the single place deciding to log-and-drop.
func (c *Consumer) handleFailure(topic string, payload []byte, err error) {
	var de *DecodeError
	if errors.As(err, &de) {
		c.log.Warnw("dropping malformed message",
			"topic", topic, "payload", string(payload), "error", err)
		return
	}
	metrics.HandlerFailures.WithLabelValues(topic).Inc()
	c.log.Errorw("dropping message after retries",
		"topic", topic, "payload", string(payload), "error", err)
}
