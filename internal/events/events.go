package events

import (
	"sync"
	"time"

	"videolib/internal/logging"
)

// Kind names a notification.
type Kind string

const (
	FolderReconnected Kind = "folder-reconnected"
	VideoRestored     Kind = "video-restored"
	SyncProgress      Kind = "sync-progress"
	SyncComplete      Kind = "sync-complete"
)

// Event is a fire-and-forget notification for the host. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind      Kind      `json:"kind"`
	FolderID  int64     `json:"folderId"`
	VideoID   int64     `json:"videoId,omitempty"`
	Path      string    `json:"path,omitempty"`
	Count     int       `json:"count,omitempty"`
	Added     int       `json:"added,omitempty"`
	Updated   int       `json:"updated,omitempty"`
	Unchanged int       `json:"unchanged,omitempty"`
	Removed   int       `json:"removed,omitempty"`
	Time      time.Time `json:"time"`
}

// Notifier receives events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(Event) {}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

// LogNotifier writes events to the log. Progress is logged at debug level.
type LogNotifier struct {
	log logging.Logger
}

// NewLogNotifier returns a notifier that logs under the "events" component.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logging.For("events")}
}

func (l *LogNotifier) Notify(e Event) {
	switch e.Kind {
	case SyncProgress:
		if e.Count%500 == 0 {
			l.log.Debug("folder %d: %d videos scanned", e.FolderID, e.Count)
		}
	case VideoRestored:
		l.log.Debug("video %d restored at %s", e.VideoID, e.Path)
	case FolderReconnected:
		l.log.Info("folder %d reconnected at %s", e.FolderID, e.Path)
	case SyncComplete:
		l.log.Info("folder %d synced: %d added, %d updated, %d unchanged, %d removed",
			e.FolderID, e.Added, e.Updated, e.Unchanged, e.Removed)
	}
}

// Bus delivers events to any number of subscribers. A subscriber whose
// buffer is full misses the event rather than stalling the sender.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that unsubscribes
// and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Notify sends e to every subscriber without blocking.
func (b *Bus) Notify(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
