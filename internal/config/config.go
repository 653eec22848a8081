package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"

	MenuReply  = "reply"
	MenuInline = "inline"

	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

const defaultPaymentDetails = "Реквизиты для оплаты уточняйте у администратора.\n\nПосле оплаты нажмите '📤 Отправить чек'."

type Config struct {
	BotToken   string `env:"TELEGRAM_BOT_TOKEN" validate:"required"`
	Transport  string `env:"TRANSPORT" envDefault:"polling" validate:"oneof=polling webhook"`
	WebhookURL string `env:"WEBHOOK_URL" validate:"required_if=Transport webhook"`
	Port       string `env:"PORT" envDefault:"5000" validate:"required,numeric"`
	MenuStyle  string `env:"MENU_STYLE" envDefault:"reply" validate:"oneof=reply inline"`
	AdminChat  int64  `env:"ADMIN_CHAT_ID"`

	LedgerBackend   string `env:"LEDGER_BACKEND" envDefault:"sheets" validate:"oneof=sheets postgres sqlite memory"`
	SpreadsheetURL  string `env:"SPREADSHEET_URL" validate:"required_if=LedgerBackend sheets"`
	SheetName       string `env:"SHEET_NAME"`
	SheetHeaderRows int    `env:"SHEET_HEADER_ROWS" envDefault:"1" validate:"gte=0"`
	GoogleCredsJSON string `env:"GOOGLE_CREDS_JSON"`
	GoogleCredsB64  string `env:"GOOGLE_CREDS_B64"`
	DatabaseURL     string `env:"DATABASE_URL" validate:"required_if=LedgerBackend postgres"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"ledger.db"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	SubscriptionDays  int    `env:"SUBSCRIPTION_DAYS" envDefault:"30" validate:"gt=0"`
	CurrentPrice      int    `env:"CURRENT_PRICE" envDefault:"11111" validate:"gte=0"`
	ChannelInviteLink string `env:"CHANNEL_INVITE_LINK"`
	BookingLink       string `env:"BOOKING_LINK"`
	PaymentDetails    string `env:"PAYMENT_DETAILS"`

	ReceiptWait      time.Duration `env:"RECEIPT_WAIT" envDefault:"30m" validate:"gt=0"`
	RemindDaysBefore []int         `env:"REMIND_DAYS_BEFORE" envDefault:"3,1,0" envSeparator:","`
	RemindEvery      time.Duration `env:"REMIND_EVERY" envDefault:"1h" validate:"gt=0"`

	S3 S3Config `envPrefix:"S3_"`
}

type S3Config struct {
	Endpoint        string `env:"ENDPOINT"`
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// Enabled reports whether receipts should be archived to S3.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// ConfigurationError describes a setting that prevents startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	if cfg.PaymentDetails == "" {
		cfg.PaymentDetails = defaultPaymentDetails
	}
	cfg.RemindDaysBefore = normalizeDays(cfg.RemindDaysBefore)
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// unknown or negative offsets are dropped; duplicates collapse
func normalizeDays(in []int) []int {
	seen := make(map[int]bool, len(in))
	var days []int
	for _, d := range in {
		if d < 0 || d > 365 || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	return days
}

var reSpreadsheetID = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID extracts the document id from SPREADSHEET_URL. A bare id is
// accepted as well.
func (c Config) SpreadsheetID() (string, error) {
	u := strings.TrimSpace(c.SpreadsheetURL)
	if m := reSpreadsheetID.FindStringSubmatch(u); m != nil {
		return m[1], nil
	}
	if u != "" && !strings.ContainsAny(u, "/:?") {
		return u, nil
	}
	return "", &ConfigurationError{Field: "SPREADSHEET_URL", Reason: "not a Google Sheets document URL"}
}

type serviceAccount struct {
	Type        string `json:"type" validate:"eq=service_account"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email" validate:"required,email"`
	PrivateKey  string `json:"private_key" validate:"required"`
	TokenURI    string `json:"token_uri"`
}

// GoogleCredentials returns the service-account key as JSON. GOOGLE_CREDS_B64
// wins over GOOGLE_CREDS_JSON. The key must decode into the service-account
// schema; anything else is a ConfigurationError.
func (c Config) GoogleCredentials() ([]byte, error) {
	field := "GOOGLE_CREDS_JSON"
	raw := []byte(strings.TrimSpace(c.GoogleCredsJSON))
	if b := strings.TrimSpace(c.GoogleCredsB64); b != "" {
		field = "GOOGLE_CREDS_B64"
		dec, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return nil, &ConfigurationError{Field: field, Reason: "invalid base64: " + err.Error()}
		}
		raw = dec
	}
	if len(raw) == 0 {
		return nil, &ConfigurationError{Field: field, Reason: "service account key is not set"}
	}

	var sa serviceAccount
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	if err := dec.Decode(&sa); err != nil {
		return nil, &ConfigurationError{Field: field, Reason: "invalid JSON: " + err.Error()}
	}
	if err := validator.New().Struct(sa); err != nil {
		return nil, &ConfigurationError{Field: field, Reason: err.Error()}
	}
	return raw, nil
}
