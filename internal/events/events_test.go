package events

import (
	"context"
	"sync"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	p, err := Open("", "", "")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if _, ok := p.(Noop); !ok {
		t.Fatalf("expected Noop publisher, got %T", p)
	}
	if _, err := Open("kafka", "", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestRecorderConcurrentPublish(t *testing.T) {
	var rec Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rec.Publish(context.Background(), ReservationCreated, ReservationEvent{ReservationID: "r"})
		}()
	}
	wg.Wait()
	if n := len(rec.Subjects()); n != 20 {
		t.Fatalf("expected 20 events, got %d", n)
	}
}
