package mq

import (
	"context"
	"errors"
	"sync"
)

// MemoryProducer records published messages in memory. It backs local runs
// without a broker and tests.
type MemoryProducer struct {
	mu       sync.Mutex
	messages map[string][]*Message
	closed   bool
}

// NewMemoryProducer creates an empty in-memory producer.
func NewMemoryProducer() *MemoryProducer {
	return &MemoryProducer{messages: make(map[string][]*Message)}
}

// Publish stores message under topic.
func (m *MemoryProducer) Publish(ctx context.Context, topic string, message *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message == nil {
		return errors.New("message is nil")
	}
	if topic == "" {
		return errors.New("topic is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("producer is closed")
	}
	m.messages[topic] = append(m.messages[topic], message)
	return nil
}

// Messages returns a copy of the messages published to topic.
func (m *MemoryProducer) Messages(topic string) []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Message(nil), m.messages[topic]...)
}

// Close marks the producer closed.
func (m *MemoryProducer) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
