package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Payments keeps ledger rows in the Postgres table ledger_rows. The status
// column is for reviewers working directly in the database.
type Payments struct{ pool *pgxpool.Pool }

func NewPayments(p *pgxpool.Pool) *Payments { return &Payments{pool: p} }

func (r *Payments) Append(ctx context.Context, row []string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ledger_rows(display_name, user_id, date_paid, amount, method, comment, receipt_ref)
		VALUES($1,$2,$3,$4,$5,$6,$7)
	`, anyRow(padRow(row))...)
	return err
}

func (r *Payments) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT display_name, user_id, date_paid, amount, method, comment, receipt_ref, status
		FROM ledger_rows
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]string, 0, 64)
	for rows.Next() {
		row := make([]string, 8)
		if err := rows.Scan(&row[0], &row[1], &row[2], &row[3], &row[4], &row[5], &row[6], &row[7]); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
