package repo

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/artistakss/angelika-bot/internal/db"
)

// SQLite is a single-file ledger for deployments without Sheets or Postgres.
type SQLite struct{ db *sql.DB }

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer keeps append order equal to id order
	conn.SetMaxOpenConns(1)
	if err := db.ApplySQLiteMigrations(ctx, conn, db.SQLiteMigrations()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: conn}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Append(ctx context.Context, row []string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_rows(display_name, user_id, date_paid, amount, method, comment, receipt_ref)
		VALUES(?,?,?,?,?,?,?)
	`, anyRow(padRow(row))...)
	return err
}

func (s *SQLite) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT display_name, user_id, date_paid, amount, method, comment, receipt_ref, status
		FROM ledger_rows
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		row := make([]string, 8)
		if err := rows.Scan(&row[0], &row[1], &row[2], &row[3], &row[4], &row[5], &row[6], &row[7]); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
