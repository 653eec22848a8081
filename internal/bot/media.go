package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artistakss/angelika-bot/internal/domain"
	"github.com/artistakss/angelika-bot/internal/storage/receipts"
)

const defaultReceiptComment = "Оплата"

type receiptFile struct {
	id       string
	name     string
	mimeType string
}

func fileOf(msg *tgbotapi.Message) receiptFile {
	if n := len(msg.Photo); n > 0 {
		// last size is the largest
		return receiptFile{id: msg.Photo[n-1].FileID, mimeType: "image/jpeg"}
	}
	if msg.Document != nil {
		return receiptFile{id: msg.Document.FileID, name: msg.Document.FileName, mimeType: msg.Document.MimeType}
	}
	return receiptFile{}
}

// handleReceipt records an uploaded receipt for a user who pressed the
// receipt button. The armed state is consumed only when the row is written,
// so after a ledger failure the user can simply send the file again.
func (h *Handler) handleReceipt(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if !h.receipts.Armed(userID) {
		h.reply(chatID, "Сначала нажмите '"+btnReceipt+"'.")
		return
	}

	file := fileOf(msg)
	if file.id == "" {
		h.reply(chatID, "Не удалось распознать файл.")
		return
	}

	caption := ParseReceiptCaption(msg.Caption)
	comment := caption.Comment
	if comment == "" {
		comment = defaultReceiptComment
	}

	rec := domain.PaymentRecord{
		DisplayName: displayName(msg.From),
		UserID:      strconv.FormatInt(userID, 10),
		DatePaid:    domain.Day(h.now()).Format(domain.DateLayout),
		Amount:      caption.Amount,
		Method:      domain.MethodManual,
		Comment:     comment,
		ReceiptRef:  file.id,
	}
	if !h.ledger.RecordPayment(ctx, rec) {
		h.reply(chatID, "❌ Ошибка записи чека. Попробуйте отправить его ещё раз чуть позже.")
		return
	}
	h.receipts.Disarm(userID)

	h.reply(chatID, "✅ Чек получен. Админ скоро проверит.")

	stored, archived := h.archiveReceipt(ctx, rec.UserID, file)
	if h.cfg.AdminChat == 0 {
		return
	}
	note := fmt.Sprintf("Новый чек от %s (%d)", rec.DisplayName, userID)
	if caption.Amount != "" {
		note += "\nСумма: " + caption.Amount
	}
	if archived {
		note += "\nКопия: " + stored.OriginalURL
	}
	h.sendDM(h.cfg.AdminChat, note)
}

func (h *Handler) archiveReceipt(ctx context.Context, userID string, f receiptFile) (receipts.Stored, bool) {
	if h.archive == nil {
		return receipts.Stored{}, false
	}
	url, err := h.api.GetFileDirectURL(f.id)
	if err != nil {
		log.Printf("receipt url %s: %v", f.id, err)
		return receipts.Stored{}, false
	}
	stored, err := h.archive.Archive(ctx, receipts.Receipt{
		UserID:      userID,
		FileID:      f.id,
		FileName:    f.name,
		ContentType: f.mimeType,
		URL:         url,
	})
	if err != nil {
		log.Printf("archive receipt %s: %v", f.id, err)
		return receipts.Stored{}, false
	}
	return stored, true
}
