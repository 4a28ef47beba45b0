package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"finitefield.org/taskboard/internal/services"
)

// PubSubTodoPublisher publishes todo change events to a Pub/Sub topic.
type PubSubTodoPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.TodoEventPublisher = (*PubSubTodoPublisher)(nil)

// NewPubSubTodoPublisher constructs a Pub/Sub backed todo event publisher.
func NewPubSubTodoPublisher(topic *pubsub.Topic) (*PubSubTodoPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub todo publisher: topic is required")
	}
	return &PubSubTodoPublisher{topic: topic, marshal: json.Marshal}, nil
}

// PublishTodoEvent sends the event and waits for the server acknowledgement.
func (p *PubSubTodoPublisher) PublishTodoEvent(ctx context.Context, event services.TodoEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub todo publisher: not initialised")
	}
	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal todo event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":   string(event.Type),
			"todoId": event.TodoID,
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish todo event: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubTodoPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

// Connect dials Pub/Sub and returns a publisher for topicID, creating the topic
// when it does not exist. The returned close function stops the topic and the client.
func Connect(ctx context.Context, projectID, topicID string) (*PubSubTodoPublisher, func() error, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub: create client: %w", err)
	}
	topic, err := ensureTopic(ctx, client, topicID)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	topic.PublishSettings.DelayThreshold = 50 * time.Millisecond
	publisher, err := NewPubSubTodoPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, func() error {
		publisher.Stop()
		return client.Close()
	}, nil
}

func ensureTopic(ctx context.Context, client *pubsub.Client, topicID string) (*pubsub.Topic, error) {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("pubsub: check topic: %w", err)
	}
	if exists {
		return topic, nil
	}
	created, err := client.CreateTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("pubsub: create topic: %w", err)
	}
	return created, nil
}
