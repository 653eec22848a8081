// Package ledger decides subscription access from an append-only payment log.
//
// The log lives in an external Store (a spreadsheet, a SQL table) that only
// supports appending a row and reading every row back in append order. Rows
// are never updated by this package; the last row appended for a user is the
// authoritative one.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/artistakss/angelika-bot/internal/domain"
)

// SubscriptionDays is the default validity window of one payment.
const SubscriptionDays = 30

// Store is the external append-only ledger.
type Store interface {
	Append(ctx context.Context, row []string) error
	ReadAll(ctx context.Context) ([][]string, error)
}

type Ledger struct {
	store      Store
	days       int
	headerRows int
	logger     *log.Logger
	verbose    bool
	validate   *validator.Validate
}

type Option func(*Ledger)

// WithHeaderRows makes ReadAll skip the first n rows (spreadsheet headers).
func WithHeaderRows(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.headerRows = n
		}
	}
}

// WithSubscriptionDays overrides the validity window.
func WithSubscriptionDays(days int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.days = days
		}
	}
}

func WithLogger(lg *log.Logger) Option {
	return func(l *Ledger) {
		if lg == nil {
			lg = log.New(io.Discard, "", 0)
		}
		l.logger = lg
	}
}

// WithVerbose also logs lookups that simply found no record.
func WithVerbose(v bool) Option {
	return func(l *Ledger) { l.verbose = v }
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		days:     SubscriptionDays,
		logger:   log.Default(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Days returns the configured validity window.
func (l *Ledger) Days() int { return l.days }

// RecordPayment appends one row for rec. Empty amount and method get the
// "unknown" and "manual" defaults. It reports false on any failure; the error
// is logged, not returned.
func (l *Ledger) RecordPayment(ctx context.Context, rec domain.PaymentRecord) bool {
	if err := l.recordPayment(ctx, rec); err != nil {
		l.logger.Printf("record payment for %q: %v", rec.UserID, err)
		return false
	}
	l.logger.Printf("recorded payment: user=%s date=%s ref=%s", rec.UserID, rec.DatePaid, rec.ReceiptRef)
	return true
}

func (l *Ledger) recordPayment(ctx context.Context, rec domain.PaymentRecord) error {
	if l.store == nil {
		return ErrUnavailable
	}
	if rec.Amount == "" {
		rec.Amount = domain.AmountUnknown
	}
	if rec.Method == "" {
		rec.Method = domain.MethodManual
	}
	if err := l.validate.Struct(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := l.store.Append(ctx, rec.Row()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// LastPaymentFor returns the most recently appended record for userID.
func (l *Ledger) LastPaymentFor(ctx context.Context, userID string) (domain.PaymentRecord, bool) {
	rec, err := l.lastPayment(ctx, userID)
	if err != nil {
		l.logLookup(userID, err)
		return domain.PaymentRecord{}, false
	}
	return rec, true
}

// IsSubscriptionActive reports whether userID's last payment still covers now.
// Day granularity in UTC: the expiry day itself is still active. A missing or
// unparseable record yields (false, nil).
func (l *Ledger) IsSubscriptionActive(ctx context.Context, userID string, now time.Time) (bool, *time.Time) {
	rec, err := l.lastPayment(ctx, userID)
	if err != nil {
		l.logLookup(userID, err)
		return false, nil
	}
	expires, err := l.expiry(rec)
	if err != nil {
		l.logLookup(userID, err)
		return false, nil
	}
	return !domain.Day(now).After(expires), &expires
}

// ReviewStatus returns the reviewer-owned status column of userID's last
// record. The ledger only reads this column.
func (l *Ledger) ReviewStatus(ctx context.Context, userID string) (string, bool) {
	rec, err := l.lastPayment(ctx, userID)
	if err != nil {
		l.logLookup(userID, err)
		return "", false
	}
	return rec.Status, true
}

// ExpiringOn returns the authoritative record of every user whose
// subscription expires exactly on day. Users with a malformed last record
// are skipped. ok is false when the ledger could not be read.
func (l *Ledger) ExpiringOn(ctx context.Context, day time.Time) (recs []domain.PaymentRecord, ok bool) {
	rows, err := l.rows(ctx)
	if err != nil {
		l.logger.Printf("expiring on %s: %v", day.Format(domain.DateLayout), err)
		return nil, false
	}

	last := make(map[string]domain.PaymentRecord)
	var order []string
	for _, row := range rows {
		rec, ok := domain.RecordFromRow(row)
		if !ok || rec.UserID == "" {
			continue
		}
		if _, seen := last[rec.UserID]; !seen {
			order = append(order, rec.UserID)
		}
		last[rec.UserID] = rec
	}

	target := domain.Day(day)
	var out []domain.PaymentRecord
	for _, uid := range order {
		rec := last[uid]
		expires, err := l.expiry(rec)
		if err != nil {
			continue
		}
		if expires.Equal(target) {
			out = append(out, rec)
		}
	}
	return out, true
}

func (l *Ledger) lastPayment(ctx context.Context, userID string) (domain.PaymentRecord, error) {
	rows, err := l.rows(ctx)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	var (
		last  domain.PaymentRecord
		found bool
	)
	for _, row := range rows {
		rec, ok := domain.RecordFromRow(row)
		if !ok || rec.UserID != userID {
			continue
		}
		last, found = rec, true
	}
	if !found {
		return domain.PaymentRecord{}, ErrNoRecord
	}
	return last, nil
}

func (l *Ledger) rows(ctx context.Context) ([][]string, error) {
	if l.store == nil {
		return nil, ErrUnavailable
	}
	rows, err := l.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(rows) <= l.headerRows {
		return nil, nil
	}
	return rows[l.headerRows:], nil
}

func (l *Ledger) expiry(rec domain.PaymentRecord) (time.Time, error) {
	paid, err := rec.PaidOn()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, rec.DatePaid)
	}
	return paid.AddDate(0, 0, l.days), nil
}

func (l *Ledger) logLookup(userID string, err error) {
	if errors.Is(err, ErrNoRecord) {
		if l.verbose {
			l.logger.Printf("lookup %q: no record", userID)
		}
		return
	}
	l.logger.Printf("lookup %q: %v", userID, err)
}
