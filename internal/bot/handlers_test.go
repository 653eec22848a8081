package bot

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artistakss/angelika-bot/internal/assistant"
	"github.com/artistakss/angelika-bot/internal/config"
	"github.com/artistakss/angelika-bot/internal/domain"
	"github.com/artistakss/angelika-bot/internal/ledger"
	"github.com/artistakss/angelika-bot/internal/repo"
	"github.com/artistakss/angelika-bot/internal/session"
	"github.com/artistakss/angelika-bot/internal/storage/receipts"
)

const (
	aliceID = int64(1001)
	adminID = int64(42)
)

type sent struct {
	chatID int64
	text   string
	markup interface{}
}

type fakeAPI struct {
	mu       sync.Mutex
	out      []sent
	answered []string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.out = append(f.out, sent{chatID: m.ChatID, text: m.Text, markup: m.ReplyMarkup})
	case tgbotapi.EditMessageTextConfig:
		f.out = append(f.out, sent{chatID: m.ChatID, text: m.Text, markup: m.ReplyMarkup})
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answered = append(f.answered, cb.CallbackQueryID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "https://api.telegram.org/file/bot/" + fileID, nil
}

func (f *fakeAPI) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		t.Fatal("nothing was sent")
	}
	return f.out[len(f.out)-1]
}

func (f *fakeAPI) to(chatID int64) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.out {
		if s.chatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

type fakeAI struct {
	answer string
	err    error
	prompt string
	asked  string
}

func (f *fakeAI) Complete(_ context.Context, prompt, text string) (string, error) {
	f.prompt, f.asked = prompt, text
	return f.answer, f.err
}

type fakeArchive struct {
	got receipts.Receipt
	err error
}

func (f *fakeArchive) Archive(_ context.Context, r receipts.Receipt) (receipts.Stored, error) {
	f.got = r
	if f.err != nil {
		return receipts.Stored{}, f.err
	}
	return receipts.Stored{OriginalURL: "https://s3.local/b/" + r.FileID}, nil
}

type fixture struct {
	api   *fakeAPI
	store *repo.Memory
	h     *Handler
}

func testConfig() config.Config {
	return config.Config{
		MenuStyle:         config.MenuReply,
		AdminChat:         adminID,
		CurrentPrice:      11111,
		ChannelInviteLink: "https://t.me/+invite",
		PaymentDetails:    "Kaspi: pay.example/kaspi",
		RemindDaysBefore:  []int{3, 0},
	}
}

func newFixture(t *testing.T, cfg config.Config, ai *fakeAI, archive *fakeArchive, rows ...[]string) *fixture {
	t.Helper()
	api := &fakeAPI{}
	store := repo.NewMemory(append([][]string{{"nick", "user_id", "date"}}, rows...)...)
	l := ledger.New(store, ledger.WithHeaderRows(1), ledger.WithLogger(log.New(io.Discard, "", 0)))

	var completer assistant.Completer
	if ai != nil {
		completer = ai
	}
	var arch receipts.Archiver
	if archive != nil {
		arch = archive
	}
	h := NewHandler(api, cfg, l, session.NewReceipts(time.Minute, 0), completer, arch)
	h.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return &fixture{api: api, store: store, h: h}
}

func alice() *tgbotapi.User {
	return &tgbotapi.User{ID: aliceID, UserName: "alice", FirstName: "Alice"}
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: aliceID, Type: "private"},
		From: alice(),
		Text: text,
	}}
}

func photoUpdate(fileID, caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: aliceID, Type: "private"},
		From:    alice(),
		Caption: caption,
		Photo: []tgbotapi.PhotoSize{
			{FileID: fileID + "-small", Width: 90},
			{FileID: fileID, Width: 1280},
		},
	}}
}

func TestStartSendsMenu(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, testConfig(), nil, nil)
	f.h.HandleUpdate(ctx, textUpdate("/start"))
	got := f.api.last(t)
	if !strings.Contains(got.text, "нейро-ассистент") {
		t.Errorf("greeting = %q", got.text)
	}
	kb, ok := got.markup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok || len(kb.Keyboard) != len(menuLayout) {
		t.Fatalf("markup = %#v, want reply keyboard", got.markup)
	}

	cfg := testConfig()
	cfg.MenuStyle = config.MenuInline
	f = newFixture(t, cfg, nil, nil)
	f.h.HandleUpdate(ctx, textUpdate("/start"))
	if _, ok := f.api.last(t).markup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Fatalf("markup = %#v, want inline keyboard", f.api.last(t).markup)
	}
}

func TestIgnoresGroupChats(t *testing.T) {
	f := newFixture(t, testConfig(), nil, nil)
	upd := textUpdate("/start")
	upd.Message.Chat.Type = "group"
	f.h.HandleUpdate(context.Background(), upd)
	if len(f.api.out) != 0 {
		t.Fatalf("sent %d messages to a group", len(f.api.out))
	}
}

func TestStaticButtons(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{btnPay, "Kaspi"},
		{btnDetails, "Kaspi"},
		{btnFAQ, "11111 ₸"},
		{btnFAQ, "30 дней"},
		{btnBooking, "администратору"},
		{"/faq", "FAQ"},
		{"/unknown", "Не знаю такой команды"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f := newFixture(t, testConfig(), nil, nil)
			f.h.HandleUpdate(context.Background(), textUpdate(tt.text))
			if got := f.api.last(t).text; !strings.Contains(got, tt.want) {
				t.Errorf("reply = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestReceiptFlow(t *testing.T) {
	ctx := context.Background()
	archive := &fakeArchive{}
	f := newFixture(t, testConfig(), nil, archive)

	// not armed yet
	f.h.HandleUpdate(ctx, photoUpdate("file-0", ""))
	if !strings.Contains(f.api.last(t).text, "Сначала нажмите") {
		t.Fatalf("reply = %q", f.api.last(t).text)
	}
	if f.store.Len() != 1 {
		t.Fatalf("row written without pressing the button")
	}

	f.h.HandleUpdate(ctx, textUpdate(btnReceipt))
	f.h.HandleUpdate(ctx, photoUpdate("file123", "11 111 ₸"))

	if f.store.Len() != 2 {
		t.Fatalf("rows = %d, want 2", f.store.Len())
	}
	rows, _ := f.store.ReadAll(ctx)
	row := rows[1]
	want := []string{"alice", "1001", "2024-01-15", "11111.00 KZT", "manual", "Оплата", "file123"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, row[i], want[i])
		}
	}

	if got := f.api.to(aliceID); !strings.Contains(got[len(got)-1].text, "Чек получен") {
		t.Errorf("ack = %q", got[len(got)-1].text)
	}
	admin := f.api.to(adminID)
	if len(admin) != 1 || !strings.Contains(admin[0].text, "alice (1001)") || !strings.Contains(admin[0].text, "s3.local") {
		t.Errorf("admin notes = %+v", admin)
	}
	if archive.got.FileID != "file123" || archive.got.UserID != "1001" {
		t.Errorf("archived %+v", archive.got)
	}

	// one receipt per press
	f.h.HandleUpdate(ctx, photoUpdate("file456", ""))
	if f.store.Len() != 2 {
		t.Fatalf("second receipt recorded without pressing the button")
	}
}

func TestReceiptDocumentDefaults(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.AdminChat = 0
	f := newFixture(t, cfg, nil, nil)

	f.h.HandleUpdate(ctx, textUpdate(btnReceipt))
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: aliceID, Type: "private"},
		From:     &tgbotapi.User{ID: aliceID, FirstName: "Alice", LastName: "Smith"},
		Document: &tgbotapi.Document{FileID: "doc1", FileName: "check.pdf", MimeType: "application/pdf"},
	}}
	f.h.HandleUpdate(ctx, upd)

	rows, _ := f.store.ReadAll(ctx)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	row := rows[1]
	if row[domain.ColDisplayName] != "Alice Smith" || row[domain.ColAmount] != domain.AmountUnknown || row[domain.ColReceiptRef] != "doc1" {
		t.Errorf("row = %v", row)
	}
	if len(f.api.to(adminID)) != 0 {
		t.Error("admin notified although ADMIN_CHAT_ID is unset")
	}
}

func TestReceiptLedgerOutage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig(), nil, nil)

	f.h.HandleUpdate(ctx, textUpdate(btnReceipt))
	f.store.Fail = errors.New("sheets 503")
	f.h.HandleUpdate(ctx, photoUpdate("file1", ""))

	if !strings.Contains(f.api.last(t).text, "Ошибка записи чека") {
		t.Fatalf("reply = %q", f.api.last(t).text)
	}
	if len(f.api.to(adminID)) != 0 {
		t.Error("admin notified about a receipt that was not recorded")
	}

	// user retries after the outage without pressing the button again
	f.store.Fail = nil
	f.h.HandleUpdate(ctx, photoUpdate("file1", ""))
	if f.store.Len() != 2 {
		t.Fatalf("rows = %d, want 2 after retry", f.store.Len())
	}
}

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want []string
	}{
		{"active", [][]string{{"alice", "1001", "2024-01-01"}}, []string{"активна до 2024-01-31", "https://t.me/+invite"}},
		{"expired", [][]string{{"alice", "1001", "2023-11-01"}}, []string{"закончилась 2023-12-01"}},
		{"none", nil, []string{"не найдена"}},
		{"other user", [][]string{{"bob", "2002", "2024-01-10"}}, []string{"не найдена"}},
		{"corrupt date", [][]string{{"alice", "1001", "вчера"}}, []string{"не найдена"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testConfig(), nil, nil, tt.rows...)
			f.h.HandleUpdate(context.Background(), textUpdate(btnCheck))
			got := f.api.last(t).text
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("reply = %q, want %q", got, w)
				}
			}
		})
	}
}

func TestCommunityNeedsActiveAccess(t *testing.T) {
	f := newFixture(t, testConfig(), nil, nil)
	f.h.HandleUpdate(context.Background(), textUpdate(btnCommunity))
	if got := f.api.last(t).text; strings.Contains(got, "https://t.me/+invite") {
		t.Fatalf("invite link leaked to a non-subscriber: %q", got)
	}

	f = newFixture(t, testConfig(), nil, nil, []string{"alice", "1001", "2024-01-10"})
	f.h.HandleUpdate(context.Background(), textUpdate(btnCommunity))
	if got := f.api.last(t).text; !strings.Contains(got, "https://t.me/+invite") {
		t.Fatalf("reply = %q, want invite link", got)
	}
}

func TestReceiptStatus(t *testing.T) {
	f := newFixture(t, testConfig(), nil, nil)
	f.h.HandleUpdate(context.Background(), textUpdate(btnStatus))
	if got := f.api.last(t).text; !strings.Contains(got, "Чеков пока нет") {
		t.Errorf("reply = %q", got)
	}

	f = newFixture(t, testConfig(), nil, nil, []string{"alice", "1001", "2024-01-10", "unknown", "manual", "", "f1"})
	f.h.HandleUpdate(context.Background(), textUpdate(btnStatus))
	if got := f.api.last(t).text; !strings.Contains(got, "на проверке") {
		t.Errorf("reply = %q", got)
	}

	f.store.SetStatus(1, "подтверждён")
	f.h.HandleUpdate(context.Background(), textUpdate(btnStatus))
	if got := f.api.last(t).text; !strings.Contains(got, "подтверждён") {
		t.Errorf("reply = %q", got)
	}
}

func TestQuestions(t *testing.T) {
	ctx := context.Background()

	t.Run("no ai", func(t *testing.T) {
		f := newFixture(t, testConfig(), nil, nil)
		f.h.HandleUpdate(ctx, textUpdate("что такое пробуждение?"))
		if got := f.api.last(t).text; !strings.Contains(got, "без AI") {
			t.Errorf("reply = %q", got)
		}
	})

	t.Run("answer", func(t *testing.T) {
		ai := &fakeAI{answer: "Это путь к себе."}
		f := newFixture(t, testConfig(), ai, nil)
		f.h.HandleUpdate(ctx, textUpdate("что такое пробуждение?"))
		if got := f.api.last(t).text; got != ai.answer {
			t.Errorf("reply = %q", got)
		}
		if ai.asked != "что такое пробуждение?" || !strings.Contains(ai.prompt, "11111") {
			t.Errorf("asked %q with prompt %q", ai.asked, ai.prompt)
		}
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t, testConfig(), &fakeAI{err: errors.New("rate limited")}, nil)
		f.h.HandleUpdate(ctx, textUpdate("привет"))
		if got := f.api.last(t).text; got != "Ошибка при обращении к AI." {
			t.Errorf("reply = %q", got)
		}
	})
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: alice(),
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 77,
			Chat:      &tgbotapi.Chat{ID: aliceID, Type: "private"},
		},
	}}
}

func TestInlineCallbacks(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MenuStyle = config.MenuInline
	f := newFixture(t, cfg, nil, nil)

	f.h.HandleUpdate(ctx, callbackUpdate("menu:faq"))
	got := f.api.last(t)
	if !strings.Contains(got.text, "FAQ") {
		t.Errorf("edited text = %q", got.text)
	}
	if kb, ok := got.markup.(*tgbotapi.InlineKeyboardMarkup); !ok || kb.InlineKeyboard[0][0].Text != btnBack {
		t.Errorf("markup = %#v, want back button", got.markup)
	}

	f.h.HandleUpdate(ctx, callbackUpdate("menu:back"))
	if got := f.api.last(t); got.text != greeting {
		t.Errorf("back redraw = %q", got.text)
	}

	f.h.HandleUpdate(ctx, callbackUpdate("menu:receipt"))
	if !f.h.receipts.Armed(aliceID) {
		t.Error("receipt button via callback did not arm the session")
	}

	before := len(f.api.out)
	f.h.HandleUpdate(ctx, callbackUpdate("contact:5"))
	f.h.HandleUpdate(ctx, callbackUpdate("menu:drop-tables"))
	if len(f.api.out) != before {
		t.Error("unknown callbacks produced messages")
	}

	if len(f.api.answered) != 5 {
		t.Errorf("answered %d callbacks, want 5", len(f.api.answered))
	}
}

func TestReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig(), nil, nil,
		[]string{"a", "1", "2023-12-19"}, // expires 2024-01-18: in 3 days
		[]string{"b", "2", "2023-12-16"}, // expires today
		[]string{"c", "3", "2023-12-20"}, // in 4 days: no reminder
		[]string{"d", "x", "2023-12-16"}, // not a chat id
	)

	if n := f.h.sendReminders(ctx); n != 2 {
		t.Fatalf("sent %d reminders, want 2", n)
	}
	if got := f.api.to(1); len(got) != 1 || !strings.Contains(got[0].text, "через 3 дн.") {
		t.Errorf("user 1 got %+v", got)
	}
	if got := f.api.to(2); len(got) != 1 || !strings.Contains(got[0].text, "последний день") {
		t.Errorf("user 2 got %+v", got)
	}

	if n := f.h.sendReminders(ctx); n != 0 {
		t.Fatalf("second run on the same day sent %d", n)
	}

	f.h.now = func() time.Time { return time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC) }
	if n := f.h.sendReminders(ctx); n != 1 {
		t.Fatalf("next day sent %d, want 1 (user 3)", n)
	}
}

func TestRemindersRetryAfterOutage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig(), nil, nil,
		[]string{"a", "1", "2023-12-19"},
		[]string{"b", "2", "2023-12-16"},
	)

	f.store.Fail = errors.New("sheets unavailable")
	if n := f.h.sendReminders(ctx); n != 0 {
		t.Fatalf("sent %d reminders during outage", n)
	}
	if len(f.api.out) != 0 {
		t.Fatalf("messages sent during outage: %+v", f.api.out)
	}

	f.store.Fail = nil
	if n := f.h.sendReminders(ctx); n != 2 {
		t.Fatalf("after recovery sent %d reminders, want 2", n)
	}
	if n := f.h.sendReminders(ctx); n != 0 {
		t.Fatalf("third run sent %d", n)
	}
}
