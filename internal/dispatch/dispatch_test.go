package dispatch

import (
	"testing"

	"github.com/rs/zerolog"
)

type recorder struct {
	id     string
	events []Event
}

func (r *recorder) ReceiveEvent(e Event) { r.events = append(r.events, e) }
func (r *recorder) ClientID() string     { return r.id }

func TestBroadcastReachesSubscribers(t *testing.T) {
	d := New(zerolog.Nop())
	a := &recorder{id: "a"}
	b := &recorder{id: "b"}
	d.Register(CircuitUpdate, a)
	d.Register(CircuitUpdate, b)

	d.Broadcast(CircuitUpdate, "root", map[string]interface{}{"reason": "configure"})

	for _, rec := range []*recorder{a, b} {
		if len(rec.events) != 1 {
			t.Fatalf("client %s received %d events, want 1", rec.id, len(rec.events))
		}
		e := rec.events[0]
		if e.Topic != CircuitUpdate || e.SourceID != "root" {
			t.Errorf("client %s got event %+v", rec.id, e)
		}
		if e.Data["reason"] != "configure" {
			t.Errorf("client %s got data %v", rec.id, e.Data)
		}
	}
}

func TestRegisterIsIdempotentPerID(t *testing.T) {
	d := New(zerolog.Nop())
	a := &recorder{id: "a"}
	d.Register(CircuitUpdate, a)
	d.Register(CircuitUpdate, a)
	if n := d.SubscriberCount(CircuitUpdate); n != 1 {
		t.Errorf("subscriber count = %d, want 1", n)
	}
}

func TestUnregister(t *testing.T) {
	d := New(zerolog.Nop())
	a := &recorder{id: "a"}
	b := &recorder{id: "b"}
	d.Register(CircuitUpdate, a)
	d.Register(CircuitUpdate, b)

	d.Unregister(CircuitUpdate, a)
	d.Broadcast(CircuitUpdate, "root", nil)

	if len(a.events) != 0 {
		t.Error("unregistered client still receives events")
	}
	if len(b.events) != 1 {
		t.Error("remaining client missed the broadcast")
	}

	d.UnregisterAll(b)
	if n := d.SubscriberCount(CircuitUpdate); n != 0 {
		t.Errorf("subscriber count after UnregisterAll = %d, want 0", n)
	}
}
