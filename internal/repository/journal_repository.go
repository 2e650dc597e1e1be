package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/raffle-console/internal/model"
)

// JournalRepo stores settlement outcomes in the settlement_journal table.
// Seats are kept as a comma-separated list; they are only ever read back
// for display.
type JournalRepo struct {
	db *sql.DB
}

// NewJournalRepo returns a JournalRepo bound to db.
func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{db: db} }

const journalSchema = `CREATE TABLE IF NOT EXISTS settlement_journal (
	id         CHAR(36)     NOT NULL PRIMARY KEY,
	operator   VARCHAR(128) NOT NULL,
	operation  VARCHAR(32)  NOT NULL,
	outcome    VARCHAR(32)  NOT NULL,
	draw_id    BIGINT       NOT NULL,
	sale_id    BIGINT       NOT NULL DEFAULT 0,
	seats      VARCHAR(1024) NOT NULL DEFAULT '',
	amount     BIGINT       NOT NULL DEFAULT 0,
	detail     TEXT,
	created_at DATETIME     NOT NULL,
	KEY idx_journal_outcome (outcome, created_at),
	KEY idx_journal_sale (sale_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the journal table when it does not exist.
func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, journalSchema)
	return err
}

// Record inserts one entry.  CreatedAt defaults to now (UTC).
func (r *JournalRepo) Record(ctx context.Context, e model.JournalEntry) error {
	if e.ID == "" || e.Operation == "" || e.Outcome == "" {
		return ErrInvalidEntry
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO settlement_journal (id, operator, operation, outcome, draw_id, sale_id, seats, amount, detail, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Operator, e.Operation, e.Outcome, e.DrawID, e.SaleID,
		JoinSeats(e.Seats), e.Amount, e.Detail, e.CreatedAt)
	return err
}

// ListByOutcome returns the newest entries with the given outcome.  It is
// used to list sales whose initial payment never registered.
func (r *JournalRepo) ListByOutcome(ctx context.Context, outcome string, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT id, operator, operation, outcome, draw_id, sale_id, seats, amount, detail, created_at
FROM settlement_journal WHERE outcome = ? ORDER BY created_at DESC LIMIT ?`
	return r.query(ctx, q, outcome, limit)
}

// ListBySale returns every entry recorded for one sale, oldest first.
func (r *JournalRepo) ListBySale(ctx context.Context, saleID int64) ([]model.JournalEntry, error) {
	const q = `SELECT id, operator, operation, outcome, draw_id, sale_id, seats, amount, detail, created_at
FROM settlement_journal WHERE sale_id = ? ORDER BY created_at ASC`
	out, err := r.query(ctx, q, saleID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *JournalRepo) query(ctx context.Context, q string, args ...any) ([]model.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.JournalEntry
	for rows.Next() {
		var (
			e      model.JournalEntry
			seats  string
			detail sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Operator, &e.Operation, &e.Outcome, &e.DrawID, &e.SaleID,
			&seats, &e.Amount, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Seats = SplitSeats(seats)
		e.Detail = detail.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

// JoinSeats renders seat numbers as "3,4,7".
func JoinSeats(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// SplitSeats parses the JoinSeats form.  Malformed parts are skipped.
func SplitSeats(s string) []int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []int
	for _, p := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			out = append(out, n)
		}
	}
	return out
}
