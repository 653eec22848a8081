package repo

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets stores ledger rows in one tab of a Google spreadsheet.
type Sheets struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheet         string
}

// NewSheets authenticates with a service-account key and opens the document.
// An empty sheet selects the first tab, whatever it is called.
func NewSheets(ctx context.Context, credsJSON []byte, spreadsheetID, sheet string) (*Sheets, error) {
	jwt, err := google.JWTConfigFromJSON(credsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	return openSheets(ctx, spreadsheetID, sheet, option.WithHTTPClient(jwt.Client(ctx)))
}

func openSheets(ctx context.Context, spreadsheetID, sheet string, opts ...option.ClientOption) (*Sheets, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	doc, err := srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", spreadsheetID, err)
	}
	if sheet == "" {
		if len(doc.Sheets) == 0 || doc.Sheets[0].Properties == nil {
			return nil, fmt.Errorf("spreadsheet %s has no tabs", spreadsheetID)
		}
		sheet = doc.Sheets[0].Properties.Title
	}
	return &Sheets{values: srv.Spreadsheets.Values, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// Sheet is the tab rows are read from and appended to.
func (s *Sheets) Sheet() string { return s.sheet }

func (s *Sheets) Append(ctx context.Context, row []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{anyRow(row)}}
	_, err := s.values.Append(s.spreadsheetID, s.sheet, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}

func (s *Sheets) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, s.sheet).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets read: %w", err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = fmt.Sprint(v)
		}
		out = append(out, row)
	}
	return out, nil
}
