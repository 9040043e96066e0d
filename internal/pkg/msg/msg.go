package msg

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrAlreadySubscribed is returned when a subscriber asks twice for one topic.
var ErrAlreadySubscribed = errors.New("already subscribed to topic")

// queueSize is the per-subscriber buffer. A full queue drops new messages.
const queueSize = 50

// Topic is the message category
type Topic int

const (
	// Status messages carry system snapshots.
	Status Topic = iota
	// Config messages carry static device descriptions.
	Config
)

func (t Topic) String() string {
	switch t {
	case Status:
		return "status"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// Publisher is an interface for objects that allow subscribtion to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Msg is the envelope passed from a publisher to its subscribers
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the message category
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}

// PubSub fans messages out to subscribers by topic. The last message of each
// topic is retained and handed to new subscribers on Subscribe.
type PubSub struct {
	mux         *sync.Mutex
	pid         uuid.UUID
	subscribers map[Topic]map[uuid.UUID]chan Msg
	retained    map[Topic]Msg
	closed      bool
}

// NewPublisher returns a PubSub sending as pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		mux:         &sync.Mutex{},
		pid:         pid,
		subscribers: make(map[Topic]map[uuid.UUID]chan Msg),
		retained:    make(map[Topic]Msg),
	}
}

// PID is the sender id stamped on published messages.
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe returns a channel receiving every message published on topic.
// The channel is closed by Unsubscribe or Close.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()

	subs, ok := p.subscribers[topic]
	if !ok {
		subs = make(map[uuid.UUID]chan Msg)
		p.subscribers[topic] = subs
	}
	if _, exists := subs[pid]; exists {
		return nil, ErrAlreadySubscribed
	}

	ch := make(chan Msg, queueSize)
	if p.closed {
		close(ch)
		return ch, nil
	}
	if m, ok := p.retained[topic]; ok {
		ch <- m
	}
	subs[pid] = ch
	return ch, nil
}

// Unsubscribe closes every channel held by pid. Unknown pids are ignored.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()

	for _, subs := range p.subscribers {
		if ch, ok := subs[pid]; ok {
			close(ch)
			delete(subs, pid)
		}
	}
}

// Publish sends payload to every subscriber of topic without blocking.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.closed {
		return
	}

	m := New(p.pid, topic, payload)
	p.retained[topic] = m
	for _, ch := range p.subscribers[topic] {
		select {
		case ch <- m:
		default:
		}
	}
}

// Close ends every subscription. Later publishes are dropped.
func (p *PubSub) Close() {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for topic, subs := range p.subscribers {
		for pid, ch := range subs {
			close(ch)
			delete(subs, pid)
		}
		delete(p.subscribers, topic)
	}
}
