package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func fastPoller(t *testing.T, device *Device, options PollOptions) *Poller {
	t.Helper()

	if options.BaseDelay == 0 {
		options.BaseDelay = 10 * time.Millisecond
	}
	if options.MaxDelay == 0 {
		options.MaxDelay = 40 * time.Millisecond
	}

	poller, err := NewClient().NewPoller(device, options)
	if err != nil {
		t.Fatalf("NewPoller returned error: %v", err)
	}

	return poller
}

func TestPollRetriesServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := newDeviceServer(t, map[string]http.HandlerFunc{
		"/air-data/latest": func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			jsonBody(latestBody)(w, r)
		},
	})
	device := newTestDevice(t, server.URL)
	poller := fastPoller(t, device, PollOptions{Interval: time.Second, MaxRetries: 3})

	start := time.Now()
	ticks := 0
	for reading, err := range poller.Readings(context.Background()) {
		ticks++
		if err != nil {
			t.Fatalf("expected no error on first tick, got %v", err)
		}
		if reading.Score != 88 {
			t.Fatalf("unexpected reading %#v", reading)
		}
		break
	}

	if ticks != 1 {
		t.Fatalf("expected exactly one tick, got %d", ticks)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
	// Two backoff delays of 10ms and 20ms.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected backoff delays before success, finished after %s", elapsed)
	}
}

func TestPollDoesNotRetryNotFound(t *testing.T) {
	server := newDeviceServer(t, nil)
	device := newTestDevice(t, server.URL, WithEndpoint(EndpointLatest))
	poller := fastPoller(t, device, PollOptions{Interval: time.Second, MaxRetries: 3})

	for _, err := range poller.Readings(context.Background()) {
		clientErr := requireClientError(t, err, ErrorKindHTTP)
		if clientErr.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", clientErr.StatusCode)
		}
		break
	}

	if requests := server.Requests(); len(requests) != 1 {
		t.Fatalf("expected zero retries, got requests %v", requests)
	}
}

func TestPollDoesNotRetryDecodeErrors(t *testing.T) {
	server := newDeviceServer(t, map[string]http.HandlerFunc{
		"/air-data/latest": jsonBody(`{"timestamp":1700000000,"score":"high"}`),
	})
	device := newTestDevice(t, server.URL, WithEndpoint(EndpointLatest))
	poller := fastPoller(t, device, PollOptions{Interval: time.Second, MaxRetries: 5})

	for _, err := range poller.Readings(context.Background()) {
		requireClientError(t, err, ErrorKindDecode)
		break
	}

	if requests := server.Requests(); len(requests) != 1 {
		t.Fatalf("expected zero retries, got requests %v", requests)
	}
}

func TestPollYieldsErrorAfterRetriesAndContinues(t *testing.T) {
	var calls atomic.Int32
	server := newDeviceServer(t, map[string]http.HandlerFunc{
		"/air-data/latest": func(w http.ResponseWriter, r *http.Request) {
			// The first tick exhausts its retries; the second succeeds.
			if calls.Add(1) <= 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			jsonBody(latestBody)(w, r)
		},
	})
	device := newTestDevice(t, server.URL, WithEndpoint(EndpointLatest))
	poller := fastPoller(t, device, PollOptions{Interval: 20 * time.Millisecond, MaxRetries: 2})

	var results []error
	for _, err := range poller.Readings(context.Background()) {
		results = append(results, err)
		if len(results) == 2 {
			break
		}
	}

	requireClientError(t, results[0], ErrorKindHTTP)
	if results[1] != nil {
		t.Fatalf("expected second tick to succeed, got %v", results[1])
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("expected 4 requests, got %d", got)
	}
}

func TestPollDoesNotAccumulateDrift(t *testing.T) {
	server := newDeviceServer(t, map[string]http.HandlerFunc{
		"/air-data/latest": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(60 * time.Millisecond)
			jsonBody(latestBody)(w, r)
		},
	})
	device := newTestDevice(t, server.URL, WithEndpoint(EndpointLatest))
	poller := fastPoller(t, device, PollOptions{Interval: 100 * time.Millisecond})

	start := time.Now()
	ticks := 0
	for _, err := range poller.Readings(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		ticks++
		if ticks == 3 {
			break
		}
	}

	// Ticks start at 0, 100 and 200ms, so the third result lands near 260ms.
	// Scheduling from completion would push it to roughly 380ms.
	if elapsed := time.Since(start); elapsed > 340*time.Millisecond {
		t.Fatalf("ticks drifted, three readings took %s", elapsed)
	}
}

func TestPollSlowFetchDoesNotBurst(t *testing.T) {
	var calls atomic.Int32
	server := newDeviceServer(t, map[string]http.HandlerFunc{
		"/air-data/latest": func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				time.Sleep(150 * time.Millisecond)
			}
			jsonBody(latestBody)(w, r)
		},
	})
	device := newTestDevice(t, server.URL, WithEndpoint(EndpointLatest))
	poller := fastPoller(t, device, PollOptions{Interval: 40 * time.Millisecond})

	var completed []time.Time
	for range poller.Readings(context.Background()) {
		completed = append(completed, time.Now())
		if len(completed) == 3 {
			break
		}
	}

	// The second tick is overdue and fires at once. The third must still
	// wait a full interval instead of catching up on the missed ones.
	if gap := completed[1].Sub(completed[0]); gap > 30*time.Millisecond {
		t.Fatalf("overdue tick waited %s", gap)
	}
	if gap := completed[2].Sub(completed[1]); gap < 30*time.Millisecond {
		t.Fatalf("ticks burst to catch up, gap was %s", gap)
	}
}

func TestPollStopsWhenContextIsDone(t *testing.T) {
	server := newDeviceServer(t, map[string]http.HandlerFunc{
		"/air-data/latest": jsonBody(latestBody),
	})
	device := newTestDevice(t, server.URL, WithEndpoint(EndpointLatest))
	poller := fastPoller(t, device, PollOptions{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())

	ticks := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range poller.Readings(ctx) {
			ticks++
			cancel()
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sequence did not end after cancellation")
	}

	if ticks != 1 {
		t.Fatalf("expected one tick before cancellation, got %d", ticks)
	}
}

func TestPollRestartsPerIteration(t *testing.T) {
	server := newDeviceServer(t, map[string]http.HandlerFunc{
		"/air-data/latest": jsonBody(latestBody),
	})
	device := newTestDevice(t, server.URL, WithEndpoint(EndpointLatest))
	poller := fastPoller(t, device, PollOptions{Interval: time.Hour})

	readings := poller.Readings(context.Background())
	for i := 0; i < 2; i++ {
		start := time.Now()
		for _, err := range readings {
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			break
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("iteration %d did not start with an immediate tick", i)
		}
	}
}

func TestNewPollerValidatesOptions(t *testing.T) {
	device := newTestDevice(t, "10.0.0.2")

	tests := map[string]PollOptions{
		"zero interval":        {Interval: 0},
		"negative interval":    {Interval: -time.Second},
		"negative retries":     {Interval: time.Second, MaxRetries: -1},
		"negative base delay":  {Interval: time.Second, BaseDelay: -time.Millisecond},
		"max below base delay": {Interval: time.Second, BaseDelay: time.Second, MaxDelay: time.Millisecond},
	}

	for name, options := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient().NewPoller(device, options)
			if !errors.Is(err, ErrInvalidPollConfig) {
				t.Fatalf("expected ErrInvalidPollConfig, got %v", err)
			}
		})
	}

	if _, err := NewClient().Poll(context.Background(), device, 0, 3); !errors.Is(err, ErrInvalidPollConfig) {
		t.Fatalf("expected Poll to reject a zero interval, got %v", err)
	}

	poller, err := NewClient().NewPoller(device, PollOptions{Interval: time.Second})
	if err != nil {
		t.Fatalf("NewPoller returned error: %v", err)
	}
	if got := poller.Options(); got.BaseDelay != DEFAULT_BACKOFF_BASE || got.MaxDelay != DEFAULT_BACKOFF_MAX {
		t.Fatalf("expected default delays, got %#v", got)
	}
}

func TestBackOffDoublesUpToCap(t *testing.T) {
	device := newTestDevice(t, "10.0.0.2")
	poller := fastPoller(t, device, PollOptions{
		Interval:  time.Second,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  500 * time.Millisecond,
	})

	b := poller.newBackOff()
	want := []time.Duration{100, 200, 400, 500, 500}
	for i, w := range want {
		if got := b.NextBackOff(); got != w*time.Millisecond {
			t.Fatalf("delay %d: expected %s, got %s", i, w*time.Millisecond, got)
		}
	}
}
