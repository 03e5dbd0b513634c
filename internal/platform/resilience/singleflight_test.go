package resilience

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_CollapsesConcurrentFetches(t *testing.T) {
	var flight SingleFlight
	var fetches atomic.Int32

	started := make(chan struct{})
	release := make(chan struct{})
	catalog := map[string]string{"4046": "Patrick Mahomes"}

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		value, err, shared := flight.Do("players:nfl", func() (any, error) {
			fetches.Add(1)
			close(started)
			<-release
			return catalog, nil
		})
		if err != nil {
			t.Errorf("leader flight failed: %v", err)
		}
		if shared {
			t.Errorf("leader reported a shared result")
		}
		if got, ok := value.(map[string]string); !ok || got["4046"] != "Patrick Mahomes" {
			t.Errorf("leader got unexpected value: %v", value)
		}
	}()
	<-started

	const joiners = 8
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err, shared := flight.Do("players:nfl", func() (any, error) {
				fetches.Add(1)
				return catalog, nil
			})
			if err != nil {
				t.Errorf("joiner flight failed: %v", err)
			}
			if !shared {
				t.Errorf("joiner did not share the leader's result")
			}
			if got, ok := value.(map[string]string); !ok || got["4046"] != "Patrick Mahomes" {
				t.Errorf("joiner got unexpected value: %v", value)
			}
		}()
	}

	// Give the joiners time to block on the in-flight key.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	<-leaderDone

	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected one upstream fetch, got %d", got)
	}
}

func TestSingleFlight_DistinctKeysDoNotCollapse(t *testing.T) {
	var flight SingleFlight
	var fetches atomic.Int32

	for _, key := range []string{"players:nfl", "stats:nfl:regular:2025"} {
		_, err, shared := flight.Do(key, func() (any, error) {
			fetches.Add(1)
			return nil, nil
		})
		if err != nil {
			t.Fatalf("flight %q failed: %v", key, err)
		}
		if shared {
			t.Fatalf("flight %q unexpectedly shared", key)
		}
	}

	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected two fetches, got %d", got)
	}
}

func TestSingleFlight_KeyForgottenAfterError(t *testing.T) {
	var flight SingleFlight

	_, err, _ := flight.Do("idmap", func() (any, error) {
		return nil, fmt.Errorf("csv host unreachable")
	})
	if err == nil {
		t.Fatalf("expected the first flight to fail")
	}

	value, err, shared := flight.Do("idmap", func() (any, error) {
		return map[string]string{"4046": "3139477"}, nil
	})
	if err != nil {
		t.Fatalf("retry flight failed: %v", err)
	}
	if shared {
		t.Fatalf("retry unexpectedly shared the failed flight")
	}
	if got, ok := value.(map[string]string); !ok || got["4046"] != "3139477" {
		t.Fatalf("retry got unexpected value: %v", value)
	}
}
