package rabbitmq

import (
	"sync"

	"github.com/streadway/amqp"
)

type mockPool struct {
	mu        sync.Mutex
	clients   []*mockClient
	closed    bool
	clientErr error
	// newClient lets a test hand out a prepared client
	newClient func() *mockClient
}

func (m *mockPool) Open() (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errPoolClosed
	}
	if m.clientErr != nil {
		return nil, m.clientErr
	}

	client := newMockClient()
	if m.newClient != nil {
		client = m.newClient()
	}
	m.clients = append(m.clients, client)
	return client, nil
}

func (m *mockPool) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockPool) lastClient() *mockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[len(m.clients)-1]
}

type published struct {
	exchange   string
	routingKey string
	msg        amqp.Publishing
}

type bound struct {
	queue    string
	key      string
	exchange string
}

type mockClient struct {
	mu         sync.Mutex
	closed     bool
	published  []published
	queues     []string
	exchanges  []string
	bindings   []bound
	prefetch   int
	deliveries chan amqp.Delivery

	publishErr error
	declareErr error
	consumeErr error
}

func newMockClient() *mockClient {
	return &mockClient{deliveries: make(chan amqp.Delivery, 10)}
}

func (m *mockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockClient) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockClient) Publish(exchange, routingKey string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, published{exchange, routingKey, msg})
	return nil
}

func (m *mockClient) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.declareErr != nil {
		return amqp.Queue{}, m.declareErr
	}
	m.queues = append(m.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (m *mockClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = append(m.exchanges, name)
	return nil
}

func (m *mockClient) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings = append(m.bindings, bound{name, key, exchange})
	return nil
}

func (m *mockClient) Qos(prefetchCount, prefetchSize int, global bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefetch = prefetchCount
	return nil
}

func (m *mockClient) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	return m.deliveries, nil
}

// mockAcknowledger records what happened to each delivery tag
type mockAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *mockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *mockAcknowledger) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.nacked)
}
