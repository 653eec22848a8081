package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type action string

const (
	actPay       action = "pay"
	actDetails   action = "details"
	actReceipt   action = "receipt"
	actCheck     action = "check"
	actCommunity action = "community"
	actBooking   action = "booking"
	actStatus    action = "status"
	actFAQ       action = "faq"
)

const (
	btnPay       = "📌 Оплатить доступ"
	btnDetails   = "📋 Реквизиты"
	btnReceipt   = "📤 Отправить чек"
	btnCheck     = "🔓 Проверить доступ"
	btnCommunity = "🔮 Вход в сообщество RESONANCE"
	btnBooking   = "📅 Записаться на сессию"
	btnStatus    = "🧾 Статус чека"
	btnFAQ       = "ℹ️ FAQ"
	btnBack      = "⬅️ Меню"

	callbackMenu = "menu"
	callbackBack = "back"
)

// menu rows, shared by both keyboard styles
var menuLayout = [][]struct {
	label string
	act   action
}{
	{{btnPay, actPay}, {btnDetails, actDetails}},
	{{btnReceipt, actReceipt}, {btnCheck, actCheck}},
	{{btnCommunity, actCommunity}, {btnBooking, actBooking}},
	{{btnStatus, actStatus}, {btnFAQ, actFAQ}},
}

var buttonActions = map[string]action{
	btnPay:       actPay,
	btnDetails:   actDetails,
	btnReceipt:   actReceipt,
	btnCheck:     actCheck,
	btnCommunity: actCommunity,
	btnBooking:   actBooking,
	btnStatus:    actStatus,
	btnFAQ:       actFAQ,
	// label used by older keyboards still cached on clients
	"🔮 Вход в сообщество RESONANSE": actCommunity,
}

var commandActions = map[string]action{
	"/pay":     actPay,
	"/receipt": actReceipt,
	"/access":  actCheck,
	"/status":  actStatus,
	"/faq":     actFAQ,
}

func (a action) valid() bool {
	switch a {
	case actPay, actDetails, actReceipt, actCheck, actCommunity, actBooking, actStatus, actFAQ:
		return true
	}
	return false
}

func replyMenu() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(menuLayout))
	for _, line := range menuLayout {
		var row []tgbotapi.KeyboardButton
		for _, b := range line {
			row = append(row, tgbotapi.NewKeyboardButton(b.label))
		}
		rows = append(rows, row)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func inlineMenu() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menuLayout))
	for _, line := range menuLayout {
		var row []tgbotapi.InlineKeyboardButton
		for _, b := range line {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.label, callbackMenu+":"+string(b.act)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnBack, callbackMenu+":"+callbackBack),
		),
	)
}

const greeting = "✨ Привет! Я нейро-ассистент Анжелики.\n\n" +
	"Я помогу тебе:\n" +
	"🔹 Войти в сообщество RESONANCE\n" +
	"🔹 Узнать реквизиты для оплаты\n" +
	"🔹 Проверить доступ\n" +
	"🔹 Задать вопрос\n\n" +
	"Выбери действие ниже 👇"
