package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// next reads one frame from ch and splits it into event type and data.
func next(t *testing.T, ch <-chan []byte) (string, []byte) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		var typ, data string
		for _, line := range strings.Split(strings.TrimSpace(string(msg)), "\n") {
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				typ = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				data = v
			}
		}
		return typ, []byte(data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return "", nil
}

func expectQuiet(t *testing.T, ch <-chan []byte, d time.Duration) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected event: %s", msg)
	case <-time.After(d):
	}
}

func TestBurstCoalescesIntoOneChangedEvent(t *testing.T) {
	b := NewBroker(30 * time.Millisecond)
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.PartitionChanged(ChangeCreated, "2024-01-02.json")
	b.PartitionChanged(ChangeUpdated, "2024-01-02.json")
	b.PartitionChanged(ChangeUpdated, "2024-01-01.json")
	b.PartitionChanged(ChangeCreated, "tmp.json")
	b.PartitionChanged(ChangeDeleted, "tmp.json")

	typ, data := next(t, ch)
	if typ != TypeCorpusChanged {
		t.Fatalf("type = %q, want %q", typ, TypeCorpusChanged)
	}
	var ev ChangedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatal(err)
	}
	want := []PartitionChange{
		{Path: "2024-01-01.json", Change: ChangeUpdated},
		{Path: "2024-01-02.json", Change: ChangeCreated},
	}
	if len(ev.Partitions) != len(want) {
		t.Fatalf("partitions = %+v, want %+v", ev.Partitions, want)
	}
	for i := range want {
		if ev.Partitions[i] != want[i] {
			t.Errorf("partitions[%d] = %+v, want %+v", i, ev.Partitions[i], want[i])
		}
	}

	expectQuiet(t, ch, 80*time.Millisecond)
}

func TestSeparateWindowsEmitSeparately(t *testing.T) {
	b := NewBroker(20 * time.Millisecond)
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.PartitionChanged(ChangeDeleted, "a.json")
	if typ, _ := next(t, ch); typ != TypeCorpusChanged {
		t.Fatalf("first type = %q", typ)
	}
	b.PartitionChanged(ChangeCreated, "b.json")
	_, data := next(t, ch)
	if !strings.Contains(string(data), `"b.json"`) || strings.Contains(string(data), `"a.json"`) {
		t.Errorf("second window payload = %s", data)
	}
}

func TestMergeChange(t *testing.T) {
	tests := []struct {
		prev, next, want string
	}{
		{"", ChangeCreated, ChangeCreated},
		{"", ChangeDeleted, ChangeDeleted},
		{ChangeCreated, ChangeUpdated, ChangeCreated},
		{ChangeCreated, ChangeDeleted, ""},
		{ChangeUpdated, ChangeDeleted, ChangeDeleted},
		{ChangeDeleted, ChangeCreated, ChangeUpdated},
		{ChangeUpdated, ChangeUpdated, ChangeUpdated},
	}
	for _, tt := range tests {
		if got := mergeChange(tt.prev, tt.next); got != tt.want {
			t.Errorf("mergeChange(%q, %q) = %q, want %q", tt.prev, tt.next, got, tt.want)
		}
	}
}

func TestUnknownChangeKindIgnored(t *testing.T) {
	b := NewBroker(10 * time.Millisecond)
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.PartitionChanged("renamed", "x.json")
	expectQuiet(t, ch, 60*time.Millisecond)
}

func TestRefreshedCarriesDelta(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	loaded := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b.Refreshed(RefreshSummary{LoadedAt: loaded, TotalPapers: 10})
	b.Refreshed(RefreshSummary{LoadedAt: loaded.Add(time.Minute), TotalPapers: 7, PartitionErrors: 1})

	for _, want := range []RefreshedEvent{
		{LoadedAt: loaded, TotalPapers: 10, Delta: 10},
		{LoadedAt: loaded.Add(time.Minute), TotalPapers: 7, Delta: -3, PartitionErrors: 1},
	} {
		typ, data := next(t, ch)
		if typ != TypeCorpusRefreshed {
			t.Fatalf("type = %q", typ)
		}
		var got RefreshedEvent
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if !got.LoadedAt.Equal(want.LoadedAt) || got.TotalPapers != want.TotalPapers ||
			got.Delta != want.Delta || got.PartitionErrors != want.PartitionErrors {
			t.Errorf("event = %+v, want %+v", got, want)
		}
	}
}

func TestLateSubscriberGetsLastRefresh(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	b.Refreshed(RefreshSummary{TotalPapers: 3})
	b.Refreshed(RefreshSummary{TotalPapers: 5})

	// Let the loop drain the refresh queue before joining.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ch, cancel := b.Subscribe()
		typ, data := "", []byte(nil)
		select {
		case msg := <-ch:
			typ, data = "got", msg
		case <-time.After(20 * time.Millisecond):
		}
		cancel()
		if typ != "" && strings.Contains(string(data), `"total_papers":5`) {
			if !strings.Contains(string(data), `"delta":2`) {
				t.Errorf("replayed frame = %s", data)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("late subscriber never received the latest refresh")
		}
	}
}

func TestSubscribeCancelAndCount(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	ch, cancel := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d, want 0", n)
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	b := NewBroker(0)
	ch, _ := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribe after Close should return a closed channel")
	}
	b.PartitionChanged(ChangeCreated, "x.json")
	b.Refreshed(RefreshSummary{})
}

func TestServeHTTPStreamsReplay(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	b.Refreshed(RefreshSummary{TotalPapers: 42})

	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "data: ") {
			if !strings.Contains(line, `"total_papers":42`) {
				t.Errorf("data = %s", line)
			}
			return
		}
	}
	t.Fatalf("stream ended without data: %v", sc.Err())
}
