package impersonation

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"
)

// PGStore persists Impersonation Records in PostgreSQL. A partial unique
// index on (admin_id) WHERE ended_at IS NULL makes the one-open-session
// invariant hold even across concurrent requests and multiple replicas.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const recordColumns = `id, admin_id, admin_name, target_id, target_name, session_id, origin_ip, started_at, ended_at, duration_minutes, actions`

// Create appends a new open record.
func (s *PGStore) Create(ctx context.Context, rec *Record) error {
	actions, err := json.Marshal(rec.Actions)
	if err != nil {
		return err
	}
	if len(rec.Actions) == 0 {
		actions = []byte(`[]`)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO impersonation_logs (id, admin_id, admin_name, target_id, target_name, session_id, origin_ip, started_at, actions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.AdminID, rec.AdminName, rec.TargetID, rec.TargetName, rec.SessionID, rec.OriginIP, rec.StartedAt, actions)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrOpenRecordExists
		}
		return err
	}
	return nil
}

// AppendAction adds an action to an open record.
func (s *PGStore) AppendAction(ctx context.Context, id uuid.UUID, action Action) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE impersonation_logs SET actions = actions || $2::jsonb WHERE id = $1 AND ended_at IS NULL`,
		id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrClosed(ctx, id)
	}
	return nil
}

// Finalize closes an open record exactly once.
func (s *PGStore) Finalize(ctx context.Context, id uuid.UUID, endedAt time.Time, durationMinutes int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE impersonation_logs SET ended_at = $2, duration_minutes = $3 WHERE id = $1 AND ended_at IS NULL`,
		id, endedAt, durationMinutes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrClosed(ctx, id)
	}
	return nil
}

// OpenByAdmin returns the admin's open record.
func (s *PGStore) OpenByAdmin(ctx context.Context, adminID int64) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM impersonation_logs WHERE admin_id = $1 AND ended_at IS NULL`, adminID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOpenRecord
		}
		return nil, err
	}
	return &rec, nil
}

// ListOpen returns every open record, oldest first.
func (s *PGStore) ListOpen(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM impersonation_logs WHERE ended_at IS NULL ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// List returns matching records newest-first with the total match count.
func (s *PGStore) List(ctx context.Context, f Filter) ([]Record, int, error) {
	where := ` WHERE 1=1`
	args := make([]any, 0, 4)
	if f.AdminID != 0 {
		args = append(args, f.AdminID)
		where += ` AND admin_id = $` + strconv.Itoa(len(args))
	}
	if f.TargetID != 0 {
		args = append(args, f.TargetID)
		where += ` AND target_id = $` + strconv.Itoa(len(args))
	}
	switch f.Status {
	case StatusOpen:
		where += ` AND ended_at IS NULL`
	case StatusClosed:
		where += ` AND ended_at IS NOT NULL`
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM impersonation_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordColumns + ` FROM impersonation_logs` + where + ` ORDER BY started_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *PGStore) missingOrClosed(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM impersonation_logs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrRecordNotFound
	}
	return ErrNoOpenRecord
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		actions []byte
	)
	err := row.Scan(&rec.ID, &rec.AdminID, &rec.AdminName, &rec.TargetID, &rec.TargetName,
		&rec.SessionID, &rec.OriginIP, &rec.StartedAt, &rec.EndedAt, &rec.DurationMinutes, &actions)
	if err != nil {
		return Record{}, err
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &rec.Actions); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

var _ Store = (*PGStore)(nil)
