package broker

import (
	"context"
	"sync"

	"dispatcher/pkg/models"
)

// Published is one message recorded by MemoryProducer.
type Published struct {
	Topic   string
	Message models.Message
}

// MemoryProducer records publishes in process. It backs the memory broker
// type and the tests of every publishing component.
type MemoryProducer struct {
	mu        sync.Mutex
	published []Published
	failNext  int
	err      error
}

func NewMemoryProducer() *MemoryProducer {
	return &MemoryProducer{}
}

// FailNext makes the next n publishes return err.
func (p *MemoryProducer) FailNext(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
	p.err = err
}

func (p *MemoryProducer) Publish(ctx context.Context, topic string, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext > 0 {
		p.failNext--
		return p.err
	}

	msg.Attributes = msg.CopyAttributes()
	msg.Data = append([]byte(nil), msg.Data...)
	p.published = append(p.published, Published{Topic: topic, Message: msg})
	return nil
}

func (p *MemoryProducer) Messages() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.published...)
}

func (p *MemoryProducer) MessagesFor(topic string) []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Message
	for _, pub := range p.published {
		if pub.Topic == topic {
			out = append(out, pub.Message)
		}
	}
	return out
}

func (p *MemoryProducer) Close() error {
	return nil
}
