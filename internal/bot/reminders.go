package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/artistakss/angelika-bot/internal/domain"
)

// RunReminderWorker wakes up every tick and, once per UTC day, warns users
// whose subscription is about to expire.
func (h *Handler) RunReminderWorker(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	h.sendReminders(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sendReminders(ctx)
		}
	}
}

// sendReminders returns the number of reminders sent. Later calls on the
// same day send nothing once a run has read the ledger; a run that hits an
// outage sends nothing and leaves the day open for the next tick.
func (h *Handler) sendReminders(ctx context.Context) int {
	today := domain.Day(h.now())
	if !h.reminderDay.Before(today) {
		return 0
	}

	type due struct {
		offset int
		day    time.Time
		recs   []domain.PaymentRecord
	}
	var batches []due
	for _, offset := range h.cfg.RemindDaysBefore {
		day := today.AddDate(0, 0, offset)
		recs, ok := h.ledger.ExpiringOn(ctx, day)
		if !ok {
			return 0
		}
		batches = append(batches, due{offset: offset, day: day, recs: recs})
	}
	h.reminderDay = today

	sent := 0
	for _, b := range batches {
		when := b.day.Format(domain.DateLayout)
		for _, rec := range b.recs {
			chatID, err := strconv.ParseInt(rec.UserID, 10, 64)
			if err != nil {
				continue
			}
			msg := ""
			if b.offset > 0 {
				msg = fmt.Sprintf("⏰ Напоминание: через %d дн. (%s) заканчивается доступ.\nПродлите оплату и пришлите чек.", b.offset, when)
			} else {
				msg = fmt.Sprintf("⏰ Сегодня (%s) последний день доступа.\nПродлите оплату и пришлите чек.", when)
			}
			h.sendDM(chatID, msg)
			sent++
		}
	}
	return sent
}
