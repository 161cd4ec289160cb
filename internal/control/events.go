package control

import (
	"sync"

	"github.com/tilewm/tilewm/internal/platform"
)

// Event type discriminators, matching the distilled specification's
// event list one-for-one.
const (
	EventWindowCreated   = "WindowCreated"
	EventWindowDestroyed = "WindowDestroyed"
	EventWindowUpdated   = "WindowUpdated"
	EventWindowFocused   = "WindowFocused"
	EventDisplayFocused  = "DisplayFocused"
	EventDisplayAdded    = "DisplayAdded"
	EventDisplayRemoved  = "DisplayRemoved"
	EventDisplayUpdated  = "DisplayUpdated"
	EventTagsChanged     = "TagsChanged"
	EventLayoutChanged   = "LayoutChanged"
	EventSnapshot        = "Snapshot"
)

// StateEvent is the event socket's tagged-union payload. Only the
// fields relevant to Type are populated.
type StateEvent struct {
	Type string `json:"type"`

	Window *WindowView `json:"window,omitempty"`

	WindowID  platform.WindowID  `json:"windowId,omitempty"`
	DisplayID platform.DisplayID `json:"displayId,omitempty"`

	Display *DisplayView `json:"display,omitempty"`

	PreviousTags uint8 `json:"previousTags,omitempty"`
	NewTags      uint8 `json:"newTags,omitempty"`

	Layout string `json:"layout,omitempty"`

	Snapshot *StateView `json:"snapshot,omitempty"`
}

// Filter selects which event categories a subscriber receives. A zero
// Filter (all false) is treated by Subscription as "receive everything"
// so a bare `{}` subscribes to the full stream.
type Filter struct {
	Window  bool `json:"window"`
	Focus   bool `json:"focus"`
	Display bool `json:"display"`
	Tags    bool `json:"tags"`
	Layout  bool `json:"layout"`
}

func (f Filter) isZero() bool {
	return !f.Window && !f.Focus && !f.Display && !f.Tags && !f.Layout
}

// category classifies an event type into one of Filter's buckets.
func category(eventType string) Filter {
	switch eventType {
	case EventWindowCreated, EventWindowDestroyed, EventWindowUpdated:
		return Filter{Window: true}
	case EventWindowFocused, EventDisplayFocused:
		return Filter{Focus: true}
	case EventDisplayAdded, EventDisplayRemoved, EventDisplayUpdated:
		return Filter{Display: true}
	case EventTagsChanged:
		return Filter{Tags: true}
	case EventLayoutChanged:
		return Filter{Layout: true}
	default:
		return Filter{}
	}
}

// passes reports whether an event of the given type should be delivered
// under this filter.
func (f Filter) passes(eventType string) bool {
	if f.isZero() {
		return true
	}
	cat := category(eventType)
	return (cat.Window && f.Window) ||
		(cat.Focus && f.Focus) ||
		(cat.Display && f.Display) ||
		(cat.Tags && f.Tags) ||
		(cat.Layout && f.Layout)
}

// Subscription is the event socket's connection-time envelope.
type Subscription struct {
	Snapshot bool   `json:"snapshot"`
	Filter   Filter `json:"filter"`
}

// Hub fans state events out to every live subscriber, applying each
// subscriber's filter. The core loop's event-diff step is the only
// writer; connections are the only readers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextID      int
}

type subscriber struct {
	filter Filter
	ch     chan StateEvent
}

// NewHub returns an empty event hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[int]*subscriber)}
}

// subscribe registers a new subscriber and returns its id and channel.
// The channel is buffered so a slow reader cannot block Publish; a
// subscriber that falls behind has its oldest-pending events dropped
// rather than stalling the core loop.
func (h *Hub) subscribe(filter Filter) (int, <-chan StateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{filter: filter, ch: make(chan StateEvent, 64)}
	h.subscribers[id] = sub
	return id, sub.ch
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Publish fans an event to every subscriber whose filter accepts it.
func (h *Hub) Publish(event StateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		if !sub.filter.passes(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// drop the oldest queued event to make room, rather than
			// blocking the publisher on a slow subscriber.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}

// SubscriberCount reports how many connections are currently live.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
