package events

import (
	"testing"
)

type recorder struct{ got []Event }

func (r *recorder) Notify(e Event) { r.got = append(r.got, e) }

func TestBusDelivers(t *testing.T) {
	t.Parallel()
	b := NewBus()
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Notify(Event{Kind: SyncComplete, FolderID: 7, Added: 2})

	e := <-ch
	if e.Kind != SyncComplete || e.FolderID != 7 || e.Added != 2 {
		t.Errorf("received %+v", e)
	}
	if e.Time.IsZero() {
		t.Error("Bus did not stamp the event time")
	}
}

func TestBusDoesNotBlockOnFullSubscriber(t *testing.T) {
	t.Parallel()
	b := NewBus()
	ch, cancel := b.Subscribe(1)
	defer cancel()

	for i := 0; i < 10; i++ {
		b.Notify(Event{Kind: SyncProgress, Count: i})
	}
	if e := <-ch; e.Count != 0 {
		t.Errorf("first buffered event Count = %d, want 0", e.Count)
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := NewBus()
	ch, cancel := b.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	b.Notify(Event{Kind: SyncComplete})
}

func TestMulti(t *testing.T) {
	t.Parallel()
	a, b := &recorder{}, &recorder{}
	Multi{a, nil, b, Nop{}}.Notify(Event{Kind: VideoRestored, VideoID: 3})

	if len(a.got) != 1 || len(b.got) != 1 || b.got[0].VideoID != 3 {
		t.Errorf("a=%v b=%v", a.got, b.got)
	}
}

func TestLogNotifierHandlesAllKinds(t *testing.T) {
	t.Parallel()
	n := NewLogNotifier()
	for _, k := range []Kind{FolderReconnected, VideoRestored, SyncProgress, SyncComplete, "unknown"} {
		n.Notify(Event{Kind: k})
	}
}
