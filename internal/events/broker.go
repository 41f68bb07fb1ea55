// Package events fans state changes out to in-process subscribers.
package events

import (
	"sync/atomic"
)

// Event types.
const (
	SessionChanged  = "session.changed"
	RecipesUpdated  = "recipes.updated"
	RecipeUpdated   = "recipe.updated"
	BookmarkToggled = "bookmark.toggled"
)

// Event is one state change.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type changeReq struct {
	kind string
	id   int
}

// Broker delivers events to subscribers.
//
// A single internal loop owns the subscriber set. Public methods talk to it
// over channels, so no mutexes are required. Slow subscribers miss events
// rather than block the loop.
type Broker struct {
	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan Event]struct{})

	broadcast := func(event Event) {
		for ch := range clients {
			select {
			case ch <- event:
			default:
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.changeCh:
			var data any
			if req.id != 0 {
				data = map[string]int{"id": req.id}
			}
			broadcast(Event{Type: req.kind, Data: data})

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a subscriber and returns its channel.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// subscriberCount returns the number of subscribers.
func (b *Broker) subscriberCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to every subscriber.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange publishes a catalog change. It has the shape of a
// catalog.Listener; id 0 carries no data.
func (b *Broker) PublishChange(kind string, id int) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- changeReq{kind: kind, id: id}:
	case <-b.stopped:
	}
}
