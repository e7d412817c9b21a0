package quota

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

type fakeStore struct {
	ledger   Ledger
	readErr  error
	writeErr error
	writes   int
}

func (s *fakeStore) QuotaLedger() (Ledger, error) {
	return s.ledger, s.readErr
}

func (s *fakeStore) SetQuotaLedger(l Ledger) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.ledger = l
	return nil
}

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func fixedNow(day string) func() time.Time {
	t, _ := time.Parse("2006-01-02", day)
	return func() time.Time { return t }
}

func TestAdd_AccumulatesWithinDay(t *testing.T) {
	store := &fakeStore{}
	meter := NewMeter(store, discard(), WithNow(fixedNow("2026-03-05")))

	meter.Add(1)
	meter.Add(100)

	if got := meter.Usage(); got != 101 {
		t.Errorf("usage after charging 1+100 units = %d, want 101", got)
	}
	if store.ledger.Date != "2026-03-05" {
		t.Errorf("ledger date = %q, want today", store.ledger.Date)
	}
}

func TestAdd_ResetsOnStaleDate(t *testing.T) {
	store := &fakeStore{ledger: Ledger{Date: "2026-03-04", Used: 9500}}
	meter := NewMeter(store, discard(), WithNow(fixedNow("2026-03-05")))

	meter.Add(100)

	if store.ledger.Used != 100 {
		t.Errorf("yesterday's usage should not carry over, got %d", store.ledger.Used)
	}
	if store.ledger.Date != "2026-03-05" {
		t.Errorf("ledger date should roll to today, got %q", store.ledger.Date)
	}
}

func TestUsage_StaleLedgerReadsZeroWithoutMutation(t *testing.T) {
	stale := Ledger{Date: "2026-03-04", Used: 400}
	store := &fakeStore{ledger: stale}
	meter := NewMeter(store, discard(), WithNow(fixedNow("2026-03-05")))

	if got := meter.Usage(); got != 0 {
		t.Errorf("usage on a fresh day = %d, want 0", got)
	}
	if store.writes != 0 {
		t.Error("Usage must not write to the store")
	}
	if store.ledger != stale {
		t.Errorf("stored ledger changed to %+v, Usage must leave it untouched", store.ledger)
	}
}

func TestAdd_SwallowsPersistenceErrors(t *testing.T) {
	store := &fakeStore{writeErr: errors.New("disk full")}
	meter := NewMeter(store, discard(), WithNow(fixedNow("2026-03-05")))

	// Accounting is advisory; a broken store must never panic or
	// propagate into the request path.
	meter.Add(100)

	if store.writes != 1 {
		t.Errorf("expected one attempted write, got %d", store.writes)
	}
}

func TestAdd_RecoversFromReadErrors(t *testing.T) {
	store := &fakeStore{readErr: errors.New("corrupt ledger")}
	meter := NewMeter(store, discard(), WithNow(fixedNow("2026-03-05")))

	meter.Add(100)

	if store.ledger.Used != 100 {
		t.Errorf("a failed read should start a fresh ledger, got used=%d", store.ledger.Used)
	}
}
