// Package sse streams corpus change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeCorpusChanged   = "corpus.changed"
	TypeCorpusRefreshed = "corpus.refreshed"
)

// Partition change kinds. They match the index.Event* values.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// keepAliveInterval spaces the comment lines that keep idle streams open
// through proxies.
var keepAliveInterval = 25 * time.Second

// PartitionChange is one entry of a corpus.changed event.
type PartitionChange struct {
	Path   string `json:"path"`
	Change string `json:"change"`
}

// ChangedEvent is the payload of corpus.changed: every partition touched
// during one coalescing window, ordered by path.
type ChangedEvent struct {
	Partitions []PartitionChange `json:"partitions"`
}

// RefreshSummary describes a newly served snapshot.
type RefreshSummary struct {
	LoadedAt        time.Time
	TotalPapers     int
	PartitionErrors int
}

// RefreshedEvent is the payload of corpus.refreshed. Delta is the change in
// paper count since the previous refresh (the full count for the first).
type RefreshedEvent struct {
	LoadedAt        time.Time `json:"loaded_at"`
	TotalPapers     int       `json:"total_papers"`
	Delta           int       `json:"delta"`
	PartitionErrors int       `json:"partition_errors"`
}

// Broker fans corpus events out to SSE clients.
//
// Partition changes arriving within window of the first one are merged into
// a single corpus.changed event. The latest corpus.refreshed event is
// replayed to clients that connect afterwards, so a fresh page learns the
// current snapshot without polling /api/status.
type Broker struct {
	window time.Duration

	join      chan chan []byte
	leave     chan chan []byte
	changes   chan PartitionChange
	refreshes chan RefreshSummary

	clients atomic.Int32
	stop    chan struct{}
	done    chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that coalesces partition changes over window.
func NewBroker(window time.Duration) *Broker {
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	b := &Broker{
		window:    window,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		changes:   make(chan PartitionChange, 256),
		refreshes: make(chan RefreshSummary, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := make(map[chan []byte]struct{})
	pending := make(map[string]string)
	var (
		timer       *time.Timer
		flush       <-chan time.Time
		lastRefresh []byte
		prevTotal   int
	)

	send := func(frame []byte) {
		if frame == nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- frame:
			default:
				// Slow client; it will catch up on the next refresh.
			}
		}
	}

	for {
		select {
		case <-b.stop:
			if timer != nil {
				timer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			b.clients.Store(0)
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}
			if lastRefresh != nil {
				ch <- lastRefresh
			}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changes:
			if kind := mergeChange(pending[c.Path], c.Change); kind == "" {
				delete(pending, c.Path)
			} else {
				pending[c.Path] = kind
			}
			if timer == nil {
				timer = time.NewTimer(b.window)
				flush = timer.C
			}

		case <-flush:
			timer, flush = nil, nil
			if len(pending) > 0 {
				send(frame(TypeCorpusChanged, changedEvent(pending)))
				clear(pending)
			}

		case s := <-b.refreshes:
			lastRefresh = frame(TypeCorpusRefreshed, RefreshedEvent{
				LoadedAt:        s.LoadedAt,
				TotalPapers:     s.TotalPapers,
				Delta:           s.TotalPapers - prevTotal,
				PartitionErrors: s.PartitionErrors,
			})
			prevTotal = s.TotalPapers
			send(lastRefresh)
		}
	}
}

// mergeChange folds next into the change already pending for a partition.
// An empty result means the partition came and went inside one window.
func mergeChange(prev, next string) string {
	switch {
	case prev == "":
		return next
	case prev == ChangeCreated && next == ChangeDeleted:
		return ""
	case prev == ChangeCreated:
		return ChangeCreated
	case prev == ChangeDeleted && next == ChangeCreated:
		return ChangeUpdated
	default:
		return next
	}
}

func changedEvent(pending map[string]string) ChangedEvent {
	ev := ChangedEvent{Partitions: make([]PartitionChange, 0, len(pending))}
	for path, kind := range pending {
		ev.Partitions = append(ev.Partitions, PartitionChange{Path: path, Change: kind})
	}
	slices.SortFunc(ev.Partitions, func(a, b PartitionChange) int {
		return strings.Compare(a.Path, b.Path)
	})
	return ev
}

func frame(typ string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", typ, payload)
}

// PartitionChanged queues a partition change. Unknown kinds are ignored.
// Its signature matches index.EventCallback.
func (b *Broker) PartitionChanged(kind, path string) {
	switch kind {
	case ChangeCreated, ChangeUpdated, ChangeDeleted:
	default:
		return
	}
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- PartitionChange{Path: path, Change: kind}:
	case <-b.done:
	}
}

// Refreshed announces a newly served snapshot.
func (b *Broker) Refreshed(s RefreshSummary) {
	if b.closed.Load() {
		return
	}
	select {
	case b.refreshes <- s:
	case <-b.done:
	}
}

// Subscribe registers a client. The returned channel is closed by cancel or
// by Close.
func (b *Broker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
		return ch, func() {}
	}
	b.clients.Add(1)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			select {
			case b.leave <- ch:
				b.clients.Add(-1)
			case <-b.done:
			}
		})
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	return int(b.clients.Load())
}

// Close stops the broker and disconnects every client. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.done
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := b.Subscribe()
	defer cancel()

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
