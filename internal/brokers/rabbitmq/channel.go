package rabbitmq

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"object-denormalizer/internal/common/logging"
)

var errPoolClosed = stderrors.New("rabbitmq connection pool is closed")

// Channels opens AMQP channels for the broker.
type Channels interface {
	Open() (Channel, error)
	Close()
}

// Channel is the part of *amqp.Channel the broker drives. Close releases the
// underlying connection back to its pool.
type Channel interface {
	Close()
	Publish(exchange, routingKey string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// connPool keeps at most cap(idle) open connections between uses. A channel
// opened while none is idle dials a fresh connection; each subscription
// holds its own for as long as it runs.
type connPool struct {
	url    string
	idle   chan *amqp.Connection
	mu     sync.Mutex
	closed bool
	logger logging.Logger
}

// newConnPool dials once so an unreachable broker fails at startup.
func newConnPool(url string, size int) (*connPool, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	p := &connPool{
		url:    url,
		idle:   make(chan *amqp.Connection, size),
		logger: logging.Component("rabbitmq_pool"),
	}
	p.idle <- conn
	return p, nil
}

func (p *connPool) acquire() (*amqp.Connection, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errPoolClosed
	}

	for {
		select {
		case conn, ok := <-p.idle:
			if !ok {
				return nil, errPoolClosed
			}
			if !conn.IsClosed() {
				return conn, nil
			}
			p.logger.Warn("Discarding dropped RabbitMQ connection")
		default:
			conn, err := amqp.Dial(p.url)
			if err != nil {
				return nil, fmt.Errorf("dial rabbitmq: %w", err)
			}
			return conn, nil
		}
	}
}

func (p *connPool) release(conn *amqp.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed && !conn.IsClosed() {
		select {
		case p.idle <- conn:
			return
		default:
		}
	}
	conn.Close()
}

// Open takes a connection, idle or freshly dialed, and opens a channel on it.
func (p *connPool) Open() (Channel, error) {
	conn, err := p.acquire()
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		p.release(conn)
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	return &pooledChannel{Channel: ch, conn: conn, pool: p}, nil
}

// Close shuts every idle connection. Connections still held by open
// channels are closed when those channels are.
func (p *connPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	close(p.idle)
	for conn := range p.idle {
		conn.Close()
	}
}

type pooledChannel struct {
	*amqp.Channel
	conn *amqp.Connection
	pool *connPool
	once sync.Once
}

func (c *pooledChannel) Close() {
	c.once.Do(func() {
		_ = c.Channel.Close()
		c.pool.release(c.conn)
	})
}

var (
	_ Channels = (*connPool)(nil)
	_ Channel  = (*pooledChannel)(nil)
)
