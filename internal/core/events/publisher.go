// Package events 把认证事件以 JSON 发布到 RabbitMQ topic exchange
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultExchange = "hrms.events"

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("event publisher closed")
)

type Options struct {
	URL      string
	Exchange string
	Timeout  time.Duration // 单次 dial / publish 上限
	Buffer   int           // 待发队列长度，默认 256
}

type message struct {
	key  string
	body []byte
	at   time.Time
}

// sink 实际投递，只在后台 goroutine 中调用
type sink interface {
	send(ctx context.Context, m message) error
	close() error
}

// Publisher 请求路径只入队；后台 goroutine 复用长连接投递，队列满直接丢弃并返回 ErrQueueFull
type Publisher struct {
	opt Options
	log *zap.Logger
	now func() time.Time
	out sink

	mu     sync.RWMutex
	closed bool
	queue  chan message
	done   chan struct{}
}

func NewPublisher(opt Options, l *zap.Logger) *Publisher {
	opt = opt.withDefaults()
	return newPublisher(opt, l, &amqpSink{
		url:      opt.URL,
		exchange: opt.Exchange,
		timeout:  opt.Timeout,
		now:      time.Now,
	})
}

func (o Options) withDefaults() Options {
	if o.Exchange == "" {
		o.Exchange = DefaultExchange
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.Buffer <= 0 {
		o.Buffer = 256
	}
	return o
}

func newPublisher(opt Options, l *zap.Logger, out sink) *Publisher {
	opt = opt.withDefaults()
	if l == nil {
		l = zap.NewNop()
	}
	p := &Publisher{
		opt:   opt,
		log:   l,
		now:   time.Now,
		out:   out,
		queue: make(chan message, opt.Buffer),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

// envelope 消息体
type envelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func encode(key string, payload any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", key, err)
	}
	return json.Marshal(envelope{Event: key, OccurredAt: at.UTC(), Payload: raw})
}

// Publish 不阻塞，不等待 broker
func (p *Publisher) Publish(_ context.Context, routingKey string, payload any) error {
	now := p.now()
	body, err := encode(routingKey, payload, now)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- message{key: routingKey, body: body, at: now}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for m := range p.queue {
		p.deliver(m)
	}
	if err := p.out.close(); err != nil {
		p.log.Debug("amqp close", zap.Error(err))
	}
}

func (p *Publisher) deliver(m message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.opt.Timeout)
	defer cancel()
	if err := p.out.send(ctx, m); err != nil {
		p.log.Warn("event dropped", zap.String("event", m.key), zap.Error(err))
		return
	}
	p.log.Debug("event published", zap.String("event", m.key), zap.String("exchange", p.opt.Exchange))
}

// Close 停止接收并等待队列发完；ctx 到期先返回，剩余消息由后台继续处理
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var errBrokerDown = errors.New("amqp broker unavailable, waiting to redial")

// amqpSink 持有一条连接和一个 channel；断开后按退避间隔重连
type amqpSink struct {
	url      string
	exchange string
	timeout  time.Duration
	now      func() time.Time

	conn    *amqp.Connection
	ch      *amqp.Channel
	backoff time.Duration
	retryAt time.Time
}

const maxBackoff = 30 * time.Second

func (s *amqpSink) connect() error {
	if s.conn != nil && !s.conn.IsClosed() && s.ch != nil && !s.ch.IsClosed() {
		return nil
	}
	_ = s.close()
	if s.now().Before(s.retryAt) {
		return errBrokerDown
	}

	conn, err := amqp.DialConfig(s.url, amqp.Config{Dial: amqp.DefaultDial(s.timeout)})
	if err != nil {
		s.markDown()
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		s.markDown()
		return fmt.Errorf("amqp channel: %w", err)
	}
	// 幂等声明；durable 以便 broker 重启后仍在
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		s.markDown()
		return fmt.Errorf("amqp exchange declare: %w", err)
	}
	s.conn, s.ch, s.backoff = conn, ch, 0
	return nil
}

func (s *amqpSink) markDown() {
	switch {
	case s.backoff == 0:
		s.backoff = time.Second
	case s.backoff < maxBackoff:
		s.backoff = min(2*s.backoff, maxBackoff)
	}
	s.retryAt = s.now().Add(s.backoff)
}

func (s *amqpSink) send(ctx context.Context, m message) error {
	if err := s.connect(); err != nil {
		return err
	}
	err := s.ch.PublishWithContext(ctx, s.exchange, m.key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    m.at.UTC(),
		Body:         m.body,
	})
	if err != nil {
		_ = s.close()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (s *amqpSink) close() error {
	var err error
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	return err
}

// Nop 未配置 amqp.url 时使用
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
