package repo

import "github.com/artistakss/angelika-bot/internal/domain"

const statusCol = domain.ColStatus

// padRow widens row to the writable column count so SQL stores always bind
// the same number of arguments.
func padRow(row []string) []string {
	out := make([]string, domain.ColStatus)
	copy(out, row)
	return out
}

func anyRow(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
