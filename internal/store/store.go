package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kagehq/kage/internal/model"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a subject or share id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSubjectExists is returned when registering a subject id twice.
	ErrSubjectExists = errors.New("subject already exists")
	// ErrCandidateExists is returned when a subject is already a candidate of the organization.
	ErrCandidateExists = errors.New("candidate already exists")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		share_id TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessment_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id TEXT NOT NULL,
		instrument_id TEXT NOT NULL,
		variant TEXT NOT NULL,
		question_count INTEGER NOT NULL,
		result_data TEXT NOT NULL,
		completed_at DATETIME NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id)
	);

	CREATE INDEX IF NOT EXISTS idx_results_subject
		ON assessment_results (subject_id, completed_at);

	CREATE TRIGGER IF NOT EXISTS assessment_results_no_update
	BEFORE UPDATE ON assessment_results
	BEGIN
		SELECT RAISE(ABORT, 'assessment results are insert-only');
	END;

	CREATE TRIGGER IF NOT EXISTS assessment_results_no_delete
	BEFORE DELETE ON assessment_results
	BEGIN
		SELECT RAISE(ABORT, 'assessment results are insert-only');
	END;

	CREATE TABLE IF NOT EXISTS candidate_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		campaign_id TEXT,
		hiring_status TEXT NOT NULL DEFAULT 'screening',
		risk_level TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (organization_id, subject_id),
		FOREIGN KEY (subject_id) REFERENCES subjects(id)
	);

	CREATE TABLE IF NOT EXISTS kage_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSubject registers a subject and assigns it a random share id.
func (s *Store) CreateSubject(id, displayName string) (model.Subject, error) {
	sub := model.Subject{
		ID:          id,
		DisplayName: displayName,
		ShareID:     uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
	}
	res, err := s.db.Exec(
		`INSERT INTO subjects (id, display_name, share_id, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		sub.ID, sub.DisplayName, sub.ShareID, sub.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to create subject", "subject_id", id, "error", err)
		return model.Subject{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Subject{}, err
	}
	if n == 0 {
		return model.Subject{}, fmt.Errorf("%w: %s", ErrSubjectExists, id)
	}
	slog.Info("created subject", "subject_id", id)
	return sub, nil
}

// GetSubject returns a subject by id.
func (s *Store) GetSubject(id string) (model.Subject, error) {
	return s.scanSubject(s.db.QueryRow(
		`SELECT id, display_name, share_id, created_at FROM subjects WHERE id = ?`, id,
	))
}

// GetSubjectByShareID resolves a public share id to its subject.
func (s *Store) GetSubjectByShareID(shareID string) (model.Subject, error) {
	return s.scanSubject(s.db.QueryRow(
		`SELECT id, display_name, share_id, created_at FROM subjects WHERE share_id = ?`, shareID,
	))
}

func (s *Store) scanSubject(row *sql.Row) (model.Subject, error) {
	var sub model.Subject
	err := row.Scan(&sub.ID, &sub.DisplayName, &sub.ShareID, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return sub, ErrNotFound
	}
	return sub, err
}

// ListSubjects returns all subjects in registration order.
func (s *Store) ListSubjects() ([]model.Subject, error) {
	rows, err := s.db.Query(`SELECT id, display_name, share_id, created_at FROM subjects ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.DisplayName, &sub.ShareID, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// InsertResult appends one record to the subject's history and returns it
// with its assigned id.
func (s *Store) InsertResult(rec model.Record) (model.Record, error) {
	out, err := s.InsertResults([]model.Record{rec})
	if err != nil {
		return model.Record{}, err
	}
	return out[0], nil
}

// InsertResults appends a batch of records in one transaction. Either every
// record is stored or none is.
func (s *Store) InsertResults(recs []model.Record) ([]model.Record, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]model.Record, 0, len(recs))
	for _, rec := range recs {
		data, err := json.Marshal(rec.Answers)
		if err != nil {
			return nil, fmt.Errorf("encode result data: %w", err)
		}
		rec.CompletedAt = rec.CompletedAt.UTC()
		res, err := tx.Exec(
			`INSERT INTO assessment_results (subject_id, instrument_id, variant, question_count, result_data, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.SubjectID, rec.InstrumentID, rec.Variant, rec.Answers.Meta.QuestionCount, string(data), rec.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert %s result for %s: %w", rec.InstrumentID, rec.SubjectID, err)
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	for _, rec := range out {
		slog.Debug("stored result", "id", rec.ID, "subject_id", rec.SubjectID, "instrument", rec.InstrumentID, "variant", rec.Variant)
	}
	return out, nil
}

// ListResults returns a subject's history, newest first.
func (s *Store) ListResults(subjectID string) ([]model.Record, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_id, instrument_id, variant, result_data, completed_at
		 FROM assessment_results WHERE subject_id = ?
		 ORDER BY completed_at DESC, id DESC`, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []model.Record
	for rows.Next() {
		var (
			rec  model.Record
			data string
		)
		if err := rows.Scan(&rec.ID, &rec.SubjectID, &rec.InstrumentID, &rec.Variant, &data, &rec.CompletedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode result %d: %w", rec.ID, err)
		}
		if rec.Variant == "" {
			rec.Variant = rec.Answers.Meta.Variant
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ResultCount returns the number of records stored for a subject.
func (s *Store) ResultCount(subjectID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assessment_results WHERE subject_id = ?`, subjectID).Scan(&count)
	return count, err
}
