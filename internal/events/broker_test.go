package events

import (
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.subscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers")
	}
	ch := b.Subscribe()
	if b.subscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	b.Unsubscribe(ch)
	if b.subscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsub")
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: SessionChanged, Data: map[string]bool{"logged_in": true}})

	select {
	case ev := <-ch:
		if ev.Type != SessionChanged {
			t.Errorf("type = %q", ev.Type)
		}
		if ev.Data.(map[string]bool)["logged_in"] != true {
			t.Errorf("data = %v", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishChange(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(BookmarkToggled, 3)
	b.PublishChange(RecipesUpdated, 0)

	ev := <-ch
	if ev.Type != BookmarkToggled || ev.Data.(map[string]int)["id"] != 3 {
		t.Errorf("first event = %+v", ev)
	}
	ev = <-ch
	if ev.Type != RecipesUpdated || ev.Data != nil {
		t.Errorf("second event = %+v", ev)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	// Calls after Close are no-ops.
	b.Publish(Event{Type: "x"})
	b.PublishChange(RecipeUpdated, 1)
	if b.subscriberCount() != 0 {
		t.Error("count after close")
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
