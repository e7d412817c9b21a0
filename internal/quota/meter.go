// Package quota tracks daily YouTube API quota usage.
//
// The meter is advisory accounting only: it is shown to the user and
// never gates requests. Usage resets when the stored date rolls over.
package quota

import (
	"log"
	"time"
)

const dayFormat = "2006-01-02"

// Ledger is the persisted usage record. Date always reflects the day the
// units were consumed on.
type Ledger struct {
	Date string `json:"date"`
	Used int    `json:"used"`
}

// LedgerStore persists the ledger between sessions.
type LedgerStore interface {
	QuotaLedger() (Ledger, error)
	SetQuotaLedger(Ledger) error
}

// MeterOption configures the Meter.
type MeterOption func(*Meter)

// WithNow sets the clock (useful for testing day rollover).
func WithNow(now func() time.Time) MeterOption {
	return func(m *Meter) {
		m.now = now
	}
}

// Meter accumulates quota units against the current day.
type Meter struct {
	store  LedgerStore
	logger *log.Logger
	now    func() time.Time
}

// NewMeter creates a Meter over the given store.
func NewMeter(store LedgerStore, logger *log.Logger, opts ...MeterOption) *Meter {
	m := &Meter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Add charges units against today's ledger. A stale ledger date resets
// usage before the increment. Persistence errors are logged and
// swallowed; accounting must never fail a feed request.
func (m *Meter) Add(units int) {
	today := m.now().Format(dayFormat)

	ledger, err := m.store.QuotaLedger()
	if err != nil {
		m.logger.Printf("quota: reading ledger: %v", err)
		ledger = Ledger{}
	}
	if ledger.Date != today {
		ledger = Ledger{Date: today}
	}

	ledger.Used += units
	if err := m.store.SetQuotaLedger(ledger); err != nil {
		m.logger.Printf("quota: persisting ledger: %v", err)
	}
}

// Usage returns the units consumed today, or 0 when the stored ledger
// belongs to a previous day. The stored record is left untouched until
// the next Add.
func (m *Meter) Usage() int {
	ledger, err := m.store.QuotaLedger()
	if err != nil {
		m.logger.Printf("quota: reading ledger: %v", err)
		return 0
	}
	if ledger.Date != m.now().Format(dayFormat) {
		return 0
	}
	return ledger.Used
}
