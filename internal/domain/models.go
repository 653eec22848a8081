package domain

import (
	"strings"
	"time"
)

// Ledger row layout. Column order is the spreadsheet column order.
const (
	ColDisplayName = iota
	ColUserID
	ColDatePaid
	ColAmount
	ColMethod
	ColComment
	ColReceiptRef
	ColStatus // edited by a human reviewer, never written by the bot

	ColumnCount
)

const (
	DateLayout = "2006-01-02"

	AmountUnknown = "unknown"
	MethodManual  = "manual"
)

// PaymentRecord is one receipt/payment event as stored in the ledger.
type PaymentRecord struct {
	DisplayName string
	UserID      string `validate:"required"`
	DatePaid    string
	Amount      string
	Method      string `validate:"required"`
	Comment     string
	ReceiptRef  string

	// Status is read back from the reviewer column. Row ignores it.
	Status string
}

// Row renders the record into the seven writable columns.
func (r PaymentRecord) Row() []string {
	return []string{
		r.DisplayName,
		r.UserID,
		r.DatePaid,
		r.Amount,
		r.Method,
		r.Comment,
		r.ReceiptRef,
	}
}

// RecordFromRow maps a ledger row back to a record. Rows shorter than two
// columns carry no user id and are rejected.
func RecordFromRow(row []string) (PaymentRecord, bool) {
	if len(row) <= ColUserID {
		return PaymentRecord{}, false
	}
	col := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return PaymentRecord{
		DisplayName: col(ColDisplayName),
		UserID:      col(ColUserID),
		DatePaid:    col(ColDatePaid),
		Amount:      col(ColAmount),
		Method:      col(ColMethod),
		Comment:     col(ColComment),
		ReceiptRef:  col(ColReceiptRef),
		Status:      col(ColStatus),
	}, true
}

// PaidOn parses DatePaid as a UTC calendar date.
func (r PaymentRecord) PaidOn() (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(r.DatePaid))
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
