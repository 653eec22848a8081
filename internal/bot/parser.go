package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ReceiptCaption is what a user may type under an uploaded receipt.
type ReceiptCaption struct {
	Amount  string // "11111.00 KZT", empty when no amount was given
	Comment string
}

var reCaptionAmount = regexp.MustCompile(`(?i)^\s*(\d[\d ]*(?:[.,]\d{1,2})?)\s*(₸|тг\.?|тенге|kzt|[$€£₽]|usd|eur|gbp|rub|руб(?:л[а-яё]*)?\.?|р\.?|доллар[а-яё]*|евро)?(?:\s+(.*))?$`)

// maxAmountDigits keeps phone numbers and card numbers out of the amount.
const maxAmountDigits = 9

// ParseReceiptCaption splits a caption like "11 111 ₸ за март" into amount
// and comment. A bare number is read as tenge; a number followed by more
// text needs a currency. Anything else is kept whole as the comment.
func ParseReceiptCaption(caption string) ReceiptCaption {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return ReceiptCaption{}
	}

	m := reCaptionAmount.FindStringSubmatch(caption)
	if m == nil {
		return ReceiptCaption{Comment: caption}
	}
	if m[2] == "" && strings.TrimSpace(m[3]) != "" {
		// "3 месяца"
		return ReceiptCaption{Comment: caption}
	}
	num := strings.ReplaceAll(strings.ReplaceAll(m[1], " ", ""), ",", ".")
	if whole, _, _ := strings.Cut(num, "."); len(whole) > maxAmountDigits {
		return ReceiptCaption{Comment: caption}
	}
	cents, err := parseMoneyToCents(num)
	if err != nil || cents <= 0 {
		return ReceiptCaption{Comment: caption}
	}
	return ReceiptCaption{
		Amount:  formatMoney(cents, normalizeCurrency(strings.ToLower(m[2]))),
		Comment: strings.TrimSpace(m[3]),
	}
}

func parseMoneyToCents(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f*100 + 0.5), nil
}

func normalizeCurrency(cur string) string {
	cur = strings.TrimSuffix(cur, ".")
	switch {
	case strings.HasPrefix(cur, "руб"):
		return "RUB"
	case strings.HasPrefix(cur, "доллар"):
		return "USD"
	}
	switch cur {
	case "", "₸", "тг", "тенге", "kzt":
		// prices are in tenge
		return "KZT"
	case "$", "usd":
		return "USD"
	case "€", "eur", "евро":
		return "EUR"
	case "£", "gbp":
		return "GBP"
	case "₽", "р", "руб", "rub":
		return "RUB"
	default:
		return strings.ToUpper(cur)
	}
}

func formatMoney(cents int64, cur string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	fr := cents % 100
	return fmt.Sprintf("%s%d.%02d %s", sign, whole, fr, cur)
}
