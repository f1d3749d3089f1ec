package servicebusclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockServiceBusClient is an in-memory implementation of ServiceBusClient for testing.
type MockServiceBusClient struct {
	queues map[string][]Message // queueName -> messages
	mu     sync.RWMutex

	// Err, when set, is returned by every Send.
	Err error
	seq int
}

// NewMockServiceBusClient creates a new mock Service Bus client.
func NewMockServiceBusClient() *MockServiceBusClient {
	return &MockServiceBusClient{
		queues: make(map[string][]Message),
	}
}

// Send appends a message to the mock queue.
func (m *MockServiceBusClient) Send(ctx context.Context, queueOrTopicName string, body []byte, opts ...SendOption) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}

	sendOptions := applySendOptions(opts)

	m.seq++
	messageID := sendOptions.MessageID
	if messageID == "" {
		messageID = fmt.Sprintf("mock-msg-%d", m.seq)
	}

	m.queues[queueOrTopicName] = append(m.queues[queueOrTopicName], Message{
		ID:          messageID,
		Body:        body,
		ContentType: sendOptions.ContentType,
		Properties:  sendOptions.Properties,
		EnqueuedAt:  time.Now(),
	})

	return messageID, nil
}

// Messages returns the messages sent to a queue, oldest first.
func (m *MockServiceBusClient) Messages(queueOrTopicName string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Message, len(m.queues[queueOrTopicName]))
	copy(out, m.queues[queueOrTopicName])
	return out
}

// Close is a no-op.
func (m *MockServiceBusClient) Close(ctx context.Context) error {
	return nil
}
