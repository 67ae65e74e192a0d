package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

const (
	EventPostCreated    = "post.created"
	EventCommentCreated = "comment.created"
	EventFollowCreated  = "follow.created"
)

// Event is the envelope published after a successful write.
type Event struct {
	Type       string    `json:"type"`
	ActorID    int       `json:"actor_id"`
	PostID     int       `json:"post_id,omitempty"`
	AuthorID   int       `json:"author_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }

// NoopPublisher drops events; used when no brokers are configured.
func NoopPublisher() EventPublisher { return noopPublisher{} }

type KafkaPublisher struct {
	w *kgo.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// Publish keys messages by actor so one user's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kgo.Message{
		Key:   []byte(strconv.Itoa(e.ActorID)),
		Value: b,
		Time:  e.OccurredAt,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
