package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"anoto/models"
	"anoto/seal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("db: not found")

// Store persists session history and mirrored testimonials.
type Store struct {
	conn    *sql.DB
	dialect Dialect
	sealer  *seal.Sealer
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

// WithLogger reports rows the store has to skip.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(conn *sql.DB, d Dialect, sealer *seal.Sealer, opts ...Option) *Store {
	s := &Store{
		conn:    conn,
		dialect: d,
		sealer:  sealer,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) SaveAssessment(ctx context.Context, r *models.AssessmentRecord) error {
	op := "db.SaveAssessment"
	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	_, err := s.exec(ctx,
		"INSERT INTO assessments (id, session_id, total_score, level, message, fallback, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.SessionID, r.TotalScore, r.Level, r.Message, r.Fallback, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAssessments returns a session's results, newest first.
func (s *Store) ListAssessments(ctx context.Context, sessionID string, limit int) ([]models.AssessmentRecord, error) {
	op := "db.ListAssessments"
	rows, err := s.query(ctx,
		"SELECT id, session_id, total_score, level, message, fallback, created_at FROM assessments WHERE session_id = ? ORDER BY created_at DESC LIMIT ?",
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := []models.AssessmentRecord{}
	for rows.Next() {
		var r models.AssessmentRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TotalScore, &r.Level, &r.Message, &r.Fallback, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// SaveJournal stores an entry with its text sealed. The record id is the
// additional data of the seal, so sealed text cannot be moved between rows.
func (s *Store) SaveJournal(ctx context.Context, r *models.JournalRecord) error {
	op := "db.SaveJournal"
	r.ID = uuid.NewString()
	r.CreatedAt = s.now()

	sealed, err := s.sealer.Seal(r.Text, r.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	result, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("%s: encode result: %w", op, err)
	}
	_, err = s.exec(ctx,
		"INSERT INTO journals (id, session_id, sealed_text, result_json, fallback, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.SessionID, sealed, string(result), r.Fallback, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListJournals returns a session's entries, newest first, with text opened.
// Entries sealed under another key are skipped.
func (s *Store) ListJournals(ctx context.Context, sessionID string, limit int) ([]models.JournalRecord, error) {
	op := "db.ListJournals"
	rows, err := s.query(ctx,
		"SELECT id, session_id, sealed_text, result_json, fallback, created_at FROM journals WHERE session_id = ? ORDER BY created_at DESC LIMIT ?",
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := []models.JournalRecord{}
	for rows.Next() {
		var (
			r      models.JournalRecord
			sealed string
			result string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &sealed, &result, &r.Fallback, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		if r.Text, err = s.sealer.Open(sealed, r.ID); err != nil {
			s.logger.Warn("skipping unreadable journal",
				zap.String("journal_id", r.ID), zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(result), &r.Result); err != nil {
			return nil, fmt.Errorf("%s: decode result: %w", op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// DeleteJournal removes one of the session's entries. Entries of other
// sessions are reported as not found.
func (s *Store) DeleteJournal(ctx context.Context, sessionID, id string) error {
	op := "db.DeleteJournal"
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := s.exec(ctx, "DELETE FROM journals WHERE id = ? AND session_id = ?", id, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SaveTestimonial(ctx context.Context, r *models.TestimonialRecord) error {
	op := "db.SaveTestimonial"
	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	_, err := s.exec(ctx,
		"INSERT INTO testimonials (id, name, text, rating, forwarded, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.Name, r.Text, r.Rating, r.Forwarded, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PendingTestimonials lists mirrored testimonials the backend never
// accepted, oldest first.
func (s *Store) PendingTestimonials(ctx context.Context, limit int) ([]models.TestimonialRecord, error) {
	op := "db.PendingTestimonials"
	rows, err := s.query(ctx,
		"SELECT id, name, text, rating, forwarded, created_at FROM testimonials WHERE forwarded = ? ORDER BY created_at ASC LIMIT ?",
		false, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := []models.TestimonialRecord{}
	for rows.Next() {
		var r models.TestimonialRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Text, &r.Rating, &r.Forwarded, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}
