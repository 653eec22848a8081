package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artistakss/angelika-bot/internal/assistant"
	"github.com/artistakss/angelika-bot/internal/config"
	"github.com/artistakss/angelika-bot/internal/ledger"
	"github.com/artistakss/angelika-bot/internal/session"
	"github.com/artistakss/angelika-bot/internal/storage/receipts"
)

const aiTimeout = 45 * time.Second

// Sender is the part of *tgbotapi.BotAPI the handler talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Handler struct {
	api Sender
	cfg config.Config

	ledger   *ledger.Ledger
	receipts *session.Receipts
	ai       assistant.Completer // nil: AI answers disabled
	archive  receipts.Archiver   // nil: receipts are not archived

	now         func() time.Time
	reminderDay time.Time
}

func NewHandler(api Sender, cfg config.Config, l *ledger.Ledger, s *session.Receipts, ai assistant.Completer, archive receipts.Archiver) *Handler {
	return &Handler{
		api:      api,
		cfg:      cfg,
		ledger:   l,
		receipts: s,
		ai:       ai,
		archive:  archive,
		now:      time.Now,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		h.HandleCallback(ctx, upd.CallbackQuery)
		return
	}

	if upd.Message == nil {
		return
	}

	msg := upd.Message
	// private chats only
	if msg.Chat == nil || !msg.Chat.IsPrivate() || msg.From == nil {
		return
	}

	if len(msg.Photo) > 0 || msg.Document != nil {
		h.handleReceipt(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/start") || strings.HasPrefix(text, "/menu") {
		h.sendMenu(msg.Chat.ID, greeting)
		return
	}

	if act, ok := buttonActions[text]; ok {
		h.reply(msg.Chat.ID, h.perform(ctx, act, msg.From))
		return
	}
	if act, ok := commandActions[strings.Fields(text)[0]]; ok {
		h.reply(msg.Chat.ID, h.perform(ctx, act, msg.From))
		return
	}
	if strings.HasPrefix(text, "/") {
		h.reply(msg.Chat.ID, "Не знаю такой команды. Нажмите /start, чтобы открыть меню.")
		return
	}

	h.handleQuestion(ctx, msg.Chat.ID, text)
}

// perform runs a menu action and returns the text to show the user.
func (h *Handler) perform(ctx context.Context, act action, u *tgbotapi.User) string {
	switch act {
	case actPay, actDetails:
		return h.cfg.PaymentDetails
	case actReceipt:
		h.receipts.Arm(u.ID)
		return "Отправьте фото/файл с чеком.\nВ подписи можно указать сумму, например: 11111"
	case actCheck:
		return h.accessText(ctx, u.ID)
	case actCommunity:
		return h.communityText(ctx, u.ID)
	case actBooking:
		return h.bookingText()
	case actStatus:
		return h.statusText(ctx, u.ID)
	case actFAQ:
		return h.faqText()
	}
	return ""
}

func (h *Handler) handleQuestion(ctx context.Context, chatID int64, text string) {
	if h.ai == nil {
		h.reply(chatID, "Я пока без AI-ответов, но помогу с оплатой и доступом ❤️")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	answer, err := h.ai.Complete(ctx, assistant.Prompt(h.cfg.CurrentPrice), text)
	if err != nil {
		log.Printf("ai answer: %v", err)
		h.reply(chatID, "Ошибка при обращении к AI.")
		return
	}
	h.reply(chatID, answer)
}

func (h *Handler) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if h.cfg.MenuStyle == config.MenuInline {
		msg.ReplyMarkup = inlineMenu()
	} else {
		msg.ReplyMarkup = replyMenu()
	}
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("send menu to %d: %v", chatID, err)
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("reply to %d: %v", chatID, err)
	}
}

func (h *Handler) sendDM(telegramID int64, text string) {
	msg := tgbotapi.NewMessage(telegramID, text)
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("dm %d: %v", telegramID, err)
	}
}

// displayName is the handle stored in the ledger: @username if set, else
// the full name.
func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprintf("user_id=%d", u.ID)
	}
	return name
}
