package events

import (
	"testing"
)

func TestSubscribeReceivesMatchingType(t *testing.T) {
	eventBus := NewEventBus(4)
	ch := eventBus.Subscribe(EventListingChanged)

	eventBus.Publish(&ListingEvent{BaseEvent: NewBase(EventListingChanged), FolderID: "root"})
	eventBus.Publish(&SessionEvent{BaseEvent: NewBase(EventSessionChanged)})

	select {
	case ev := <-ch:
		if ev.Type() != EventListingChanged {
			t.Errorf("event type = %q, want listing_changed", ev.Type())
		}
	default:
		t.Fatal("no event received")
	}

	select {
	case ev := <-ch:
		t.Errorf("unexpected second event %q on typed subscription", ev.Type())
	default:
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	eventBus := NewEventBus(4)
	ch := eventBus.SubscribeAll()

	eventBus.Publish(&ListingEvent{BaseEvent: NewBase(EventListingLoading)})
	eventBus.Publish(&UploadEvent{BaseEvent: NewBase(EventUploadQueued)})

	got := 0
	for {
		select {
		case <-ch:
			got++
			continue
		default:
		}
		break
	}
	if got != 2 {
		t.Errorf("received %d events, want 2", got)
	}
}

func TestPublishNeverBlocksAndCountsDrops(t *testing.T) {
	eventBus := NewEventBus(1)
	eventBus.SubscribeAll()

	// Buffer of 1: the second publish must drop, not block.
	eventBus.Publish(&ListingEvent{BaseEvent: NewBase(EventListingChanged)})
	eventBus.Publish(&ListingEvent{BaseEvent: NewBase(EventListingChanged)})

	if got := eventBus.DroppedEventCount(); got != 1 {
		t.Errorf("DroppedEventCount() = %d, want 1", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	eventBus := NewEventBus(4)
	ch := eventBus.Subscribe(EventUploadProgress)
	eventBus.Unsubscribe(EventUploadProgress, ch)

	eventBus.Publish(&UploadEvent{BaseEvent: NewBase(EventUploadProgress)})

	select {
	case <-ch:
		t.Error("unsubscribed channel should not receive events")
	default:
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	eventBus := NewEventBus(4)
	typed := eventBus.Subscribe(EventSessionChanged)
	all := eventBus.SubscribeAll()

	eventBus.Close()

	if _, ok := <-typed; ok {
		t.Error("typed channel should be closed")
	}
	if _, ok := <-all; ok {
		t.Error("all channel should be closed")
	}

	// Publishing after close is a no-op, not a panic.
	eventBus.Publish(&SessionEvent{BaseEvent: NewBase(EventSessionChanged)})
	eventBus.Close()
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	eventBus := NewEventBus(4)
	eventBus.Close()

	ch := eventBus.Subscribe(EventSessionChanged)
	if _, ok := <-ch; ok {
		t.Error("subscription after close should yield a closed channel")
	}
}
