package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/artistakss/angelika-bot/internal/domain"
)

func (h *Handler) accessText(ctx context.Context, userID int64) string {
	active, expires := h.ledger.IsSubscriptionActive(ctx, strconv.FormatInt(userID, 10), h.now())
	switch {
	case active:
		text := fmt.Sprintf("✅ Подписка активна до %s.", expires.Format(domain.DateLayout))
		if h.cfg.ChannelInviteLink != "" {
			text += " Ссылка: " + h.cfg.ChannelInviteLink
		}
		return text
	case expires != nil:
		return fmt.Sprintf("⌛ Подписка закончилась %s. Оплатите доступ и пришлите чек.", expires.Format(domain.DateLayout))
	default:
		return "❌ Подписка не найдена. Оплатите доступ и пришлите чек."
	}
}

func (h *Handler) communityText(ctx context.Context, userID int64) string {
	active, _ := h.ledger.IsSubscriptionActive(ctx, strconv.FormatInt(userID, 10), h.now())
	if !active {
		return "🔮 Вход в сообщество RESONANCE открывается после оплаты.\n" +
			"Нажмите '" + btnPay + "', а затем '" + btnReceipt + "'."
	}
	if h.cfg.ChannelInviteLink == "" {
		return "🔮 Доступ активен. Ссылку пришлёт администратор."
	}
	return "🔮 Добро пожаловать в RESONANCE: " + h.cfg.ChannelInviteLink
}

func (h *Handler) statusText(ctx context.Context, userID int64) string {
	status, ok := h.ledger.ReviewStatus(ctx, strconv.FormatInt(userID, 10))
	switch {
	case !ok:
		return "🧾 Чеков пока нет."
	case status == "":
		return "🧾 Последний чек на проверке."
	default:
		return "🧾 Статус последнего чека: " + status
	}
}

func (h *Handler) bookingText() string {
	if h.cfg.BookingLink == "" {
		return "📅 Чтобы записаться на сессию, напишите администратору."
	}
	return "📅 Записаться на сессию: " + h.cfg.BookingLink
}

func (h *Handler) faqText() string {
	return fmt.Sprintf(
		"FAQ:\n- Текущая цена: %d ₸\n- Доступ на %d дней\n- После оплаты пришлите чек.",
		h.cfg.CurrentPrice, h.ledger.Days(),
	)
}
