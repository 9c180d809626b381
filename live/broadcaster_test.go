package live

import "testing"

func TestSubscribePublish(t *testing.T) {
	b := NewBroadcaster()

	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()
	if id1 == id2 {
		t.Fatal("subscriber ids should be unique")
	}
	if b.SubscriberCount() != 2 {
		t.Fatalf("SubscriberCount = %d, want 2", b.SubscriberCount())
	}

	b.Publish(Event{Name: "bookCreated", Data: map[string]string{"id": "b1"}})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Name != "bookCreated" {
				t.Errorf("event name = %q, want bookCreated", ev.Name)
			}
		default:
			t.Error("subscriber did not receive the published event")
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", b.SubscriberCount())
	}
	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}

	// Unsubscribing twice is harmless.
	b.Unsubscribe(id)

	// Publishing with no subscribers must not panic.
	b.Publish(Event{Name: "noop"})
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	b := NewBroadcaster()
	_, ch := b.Subscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(Event{Name: "tick", Data: i})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Errorf("received %d events, want the buffer size %d", received, subscriberBuffer)
	}
}
