package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	contractsv1 "oddlybrilliant/contracts/gen/events/v1"
)

const (
	defaultGroupBuffer     = 128
	defaultMaxDeliveries   = 3
	defaultRedeliveryDelay = 500 * time.Millisecond
)

// Kafka is the event bus the outbox relays publish to and the distribution
// consumer subscribes on. Delivery is in-process with consumer-group
// semantics: every group on a topic receives each event once, and the members
// of a group share its queue. A handler error redelivers the event to the same
// member until MaxDeliveries is reached. Broker addresses are kept for when an
// external client replaces it.
type Kafka struct {
	brokers         []string
	groupBuffer     int
	maxDeliveries   int
	redeliveryDelay time.Duration
	logger          *slog.Logger

	mu     sync.Mutex
	topics map[string]map[string]*consumerGroup
}

type consumerGroup struct {
	queue   chan contractsv1.Envelope
	members int
}

type Option func(*Kafka)

// WithMaxDeliveries bounds how often one event is handed to a failing handler.
func WithMaxDeliveries(n int) Option {
	return func(k *Kafka) {
		if n > 0 {
			k.maxDeliveries = n
		}
	}
}

func WithRedeliveryDelay(d time.Duration) Option {
	return func(k *Kafka) {
		if d >= 0 {
			k.redeliveryDelay = d
		}
	}
}

func WithGroupBuffer(n int) Option {
	return func(k *Kafka) {
		if n > 0 {
			k.groupBuffer = n
		}
	}
}

func NewKafka(brokers []string, logger *slog.Logger, opts ...Option) (*Kafka, error) {
	k := &Kafka{
		brokers:         append([]string(nil), brokers...),
		groupBuffer:     defaultGroupBuffer,
		maxDeliveries:   defaultMaxDeliveries,
		redeliveryDelay: defaultRedeliveryDelay,
		logger:          logger,
		topics:          make(map[string]map[string]*consumerGroup),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Publish enqueues event once per consumer group on topic. A group whose
// queue is full loses the event; the outbox row stays published, so the loss
// is logged rather than returned.
func (k *Kafka) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for name, group := range k.topics[topic] {
		select {
		case group.queue <- event:
		default:
			k.log(slog.LevelWarn, "consumer group queue full, dropping event",
				"event", "kafka_publish_drop",
				"topic", topic,
				"consumer_group", name,
				"event_id", event.EventID,
			)
		}
	}

	k.log(slog.LevelInfo, "event published",
		"event", "kafka_publish",
		"topic", topic,
		"consumer_groups", len(k.topics[topic]),
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

// Subscribe joins consumerGroup on topic until ctx is done. Events published
// before the first member joins are not replayed.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	queue := k.join(topic, consumerGroup)

	go func() {
		defer k.leave(topic, consumerGroup)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-queue:
				k.deliver(ctx, topic, consumerGroup, event, handler)
			}
		}
	}()
	return nil
}

func (k *Kafka) deliver(
	ctx context.Context,
	topic string,
	consumerGroup string,
	event contractsv1.Envelope,
	handler func(context.Context, contractsv1.Envelope) error,
) {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return
		}
		if attempt >= k.maxDeliveries || ctx.Err() != nil {
			k.log(slog.LevelError, "consumer handler failed, giving up",
				"event", "kafka_consume_dead_letter",
				"topic", topic,
				"consumer_group", consumerGroup,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"attempts", attempt,
				"error", err.Error(),
			)
			return
		}
		k.log(slog.LevelWarn, "consumer handler failed, redelivering",
			"event", "kafka_consume_failed",
			"topic", topic,
			"consumer_group", consumerGroup,
			"event_id", event.EventID,
			"attempt", attempt,
			"error", err.Error(),
		)

		timer := time.NewTimer(k.redeliveryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (k *Kafka) join(topic string, name string) chan contractsv1.Envelope {
	k.mu.Lock()
	defer k.mu.Unlock()

	groups := k.topics[topic]
	if groups == nil {
		groups = make(map[string]*consumerGroup)
		k.topics[topic] = groups
	}
	group := groups[name]
	if group == nil {
		group = &consumerGroup{queue: make(chan contractsv1.Envelope, k.groupBuffer)}
		groups[name] = group
	}
	group.members++
	return group.queue
}

// leave drops the group once its last member is gone, along with anything
// still queued for it.
func (k *Kafka) leave(topic string, name string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	group := k.topics[topic][name]
	if group == nil {
		return
	}
	group.members--
	if group.members > 0 {
		return
	}
	if pending := len(group.queue); pending > 0 {
		k.log(slog.LevelWarn, "consumer group closed with pending events",
			"event", "kafka_group_closed",
			"topic", topic,
			"consumer_group", name,
			"pending", pending,
		)
	}
	delete(k.topics[topic], name)
	if len(k.topics[topic]) == 0 {
		delete(k.topics, topic)
	}
}

func (k *Kafka) log(level slog.Level, msg string, args ...any) {
	if k.logger == nil {
		return
	}
	args = append(args, "module", "internal/platform/messaging", "layer", "platform")
	k.logger.Log(context.Background(), level, msg, args...)
}

func (k *Kafka) Brokers() []string {
	return append([]string(nil), k.brokers...)
}
