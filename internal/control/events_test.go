package control

import (
	"testing"
	"time"
)

func TestFilterPassesZeroMeansEverything(t *testing.T) {
	var f Filter
	for _, et := range []string{EventWindowCreated, EventWindowFocused, EventDisplayAdded, EventTagsChanged, EventLayoutChanged} {
		if !f.passes(et) {
			t.Errorf("zero filter should pass %s", et)
		}
	}
}

func TestFilterPassesSelective(t *testing.T) {
	f := Filter{Window: true}
	if !f.passes(EventWindowCreated) {
		t.Error("expected window event to pass")
	}
	if f.passes(EventDisplayAdded) {
		t.Error("expected display event to be filtered out")
	}
}

func TestHubPublishDeliversToMatchingSubscribers(t *testing.T) {
	hub := NewHub()
	_, windowEvents := hub.subscribe(Filter{Window: true})
	_, allEvents := hub.subscribe(Filter{})

	hub.Publish(StateEvent{Type: EventWindowCreated})
	hub.Publish(StateEvent{Type: EventDisplayAdded})

	select {
	case e := <-windowEvents:
		if e.Type != EventWindowCreated {
			t.Errorf("got %s, want %s", e.Type, EventWindowCreated)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for window subscriber")
	}
	select {
	case <-windowEvents:
		t.Fatal("window subscriber should not receive display event")
	case <-time.After(20 * time.Millisecond):
	}

	received := 0
	for received < 2 {
		select {
		case <-allEvents:
			received++
		case <-time.After(time.Second):
			t.Fatalf("timed out, only received %d of 2", received)
		}
	}
}

func TestHubPublishDropsOldestOnFullSubscriber(t *testing.T) {
	hub := NewHub()
	id, events := hub.subscribe(Filter{})
	defer hub.unsubscribe(id)

	for i := 0; i < 100; i++ {
		hub.Publish(StateEvent{Type: EventWindowCreated})
	}

	count := 0
	draining := true
	for draining {
		select {
		case <-events:
			count++
		default:
			draining = false
		}
	}
	if count == 0 {
		t.Fatal("expected some events to be buffered")
	}
	if count > 64 {
		t.Fatalf("buffered %d events, want at most 64", count)
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	id, events := hub.subscribe(Filter{})
	hub.unsubscribe(id)
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("subscriber count = %d, want 0", hub.SubscriberCount())
	}
}
