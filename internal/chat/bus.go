package chat

import (
	"sync"
)

const defaultSubscriptionBuffer = 64

// Bus fans incoming messages out to per-channel subscriptions.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]*Subscription
	buffer int
}

// NewBus creates a message bus. buffer <= 0 selects the default.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &Bus{
		subs:   make(map[string]map[uint64]*Subscription),
		buffer: buffer,
	}
}

// Subscribe starts receiving messages posted to channelID.
func (b *Bus) Subscribe(channelID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:        b.nextID,
		channelID: channelID,
		bus:       b,
		ch:        make(chan Message, b.buffer),
	}
	if b.subs[channelID] == nil {
		b.subs[channelID] = make(map[uint64]*Subscription)
	}
	b.subs[channelID][sub.id] = sub
	return sub
}

// Publish delivers msg to every live subscription of its channel. Slow
// subscribers drop messages instead of blocking the platform loop.
func (b *Bus) Publish(msg Message) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs[msg.ChannelID] {
		select {
		case sub.ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// Close terminates every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channelID, subs := range b.subs {
		for id, sub := range subs {
			close(sub.ch)
			delete(subs, id)
		}
		delete(b.subs, channelID)
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.subs[sub.channelID]
	if !ok {
		return
	}
	if _, ok := subs[sub.id]; !ok {
		return
	}
	delete(subs, sub.id)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.subs, sub.channelID)
	}
}

// Subscription is a live feed of one channel's messages.
type Subscription struct {
	id        uint64
	channelID string
	bus       *Bus
	ch        chan Message
	once      sync.Once
}

// C returns the message feed. It is closed after Close or when the bus shuts down.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close unsubscribes. After it returns no further messages are delivered.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}
