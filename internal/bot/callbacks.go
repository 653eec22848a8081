package bot

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleCallback serves the inline-keyboard menu. Callback data has the form
// "menu:<action>"; "menu:back" redraws the menu in place.
func (h *Handler) HandleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Telegram keeps the button spinning until the query is answered
	defer func() {
		if _, err := h.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			log.Printf("answer callback: %v", err)
		}
	}()

	if q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return
	}

	kind, arg, ok := strings.Cut(q.Data, ":")
	if !ok || kind != callbackMenu {
		return
	}

	if arg == callbackBack {
		h.editMenu(q)
		return
	}

	act := action(arg)
	if !act.valid() {
		return
	}
	h.editWithBack(q, h.perform(ctx, act, q.From))
}

func (h *Handler) editMenu(q *tgbotapi.CallbackQuery) {
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, greeting)
	kb := inlineMenu()
	edit.ReplyMarkup = &kb
	if _, err := h.api.Send(edit); err != nil {
		log.Printf("edit menu: %v", err)
	}
}

func (h *Handler) editWithBack(q *tgbotapi.CallbackQuery, text string) {
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	kb := backKeyboard()
	edit.ReplyMarkup = &kb
	if _, err := h.api.Send(edit); err != nil {
		log.Printf("edit message: %v", err)
	}
}
