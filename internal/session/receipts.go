// Package session keeps short-lived per-user conversation state.
package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCapacity = 10000

// Receipts remembers which users pressed "send receipt" and have not sent
// one yet. Entries expire after the wait window and the store is bounded, so
// abandoned flows do not accumulate.
type Receipts struct {
	armed *expirable.LRU[int64, time.Time]
}

func NewReceipts(wait time.Duration, capacity int) *Receipts {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Receipts{armed: expirable.NewLRU[int64, time.Time](capacity, nil, wait)}
}

// Arm marks userID as expected to upload a receipt.
func (r *Receipts) Arm(userID int64) {
	r.armed.Add(userID, time.Now())
}

// Armed reports whether userID is currently expected to upload a receipt.
func (r *Receipts) Armed(userID int64) bool {
	_, ok := r.armed.Get(userID)
	return ok
}

func (r *Receipts) Disarm(userID int64) {
	r.armed.Remove(userID)
}

func (r *Receipts) Len() int { return r.armed.Len() }
