package eventbus

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

var ErrUnknownEventType = errors.New("unknown event type")

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	Publish(ctx context.Context, event any) error
	Subscribe(ctx context.Context, eventType EventType, handler EventHandler) error
	Close() error
	GenerateID() string
}

// WatermillEventBus routes one topic per event type.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{publisher: pub, subscriber: sub}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, event any) error {
	topic, err := topicFor(event)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)

	return eb.publisher.Publish(topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, eventType EventType, handler EventHandler) error {
	messages, err := eb.subscriber.Subscribe(ctx, string(eventType))
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			event := eventFor(eventType)
			if event == nil {
				msg.Nack()

				continue
			}

			if err := json.Unmarshal(msg.Payload, event); err != nil {
				msg.Nack()

				continue
			}

			if err := handler(ctx, event); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}

func topicFor(event any) (string, error) {
	switch event.(type) {
	case ExecutionStarted, *ExecutionStarted:
		return string(ExecutionStartedEvent), nil
	case StepFinished, *StepFinished:
		return string(StepFinishedEvent), nil
	case ExecutionFinished, *ExecutionFinished:
		return string(ExecutionFinishedEvent), nil
	case WarmupDayFinished, *WarmupDayFinished:
		return string(WarmupDayFinishedEvent), nil
	default:
		return "", ErrUnknownEventType
	}
}

func eventFor(eventType EventType) any {
	switch eventType {
	case ExecutionStartedEvent:
		return &ExecutionStarted{}
	case StepFinishedEvent:
		return &StepFinished{}
	case ExecutionFinishedEvent:
		return &ExecutionFinished{}
	case WarmupDayFinishedEvent:
		return &WarmupDayFinished{}
	default:
		return nil
	}
}
