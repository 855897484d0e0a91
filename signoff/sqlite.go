package signoff

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is recorded in PRAGMA user_version.
const currentSchemaVersion = 1

// SQLiteStore keeps sign-off history in a SQLite database. Update and
// delete are rejected by triggers.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sign-off store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sign-off store: %w", err)
	}

	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply sign-off schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("sign-off store schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Append inserts b. A duplicate block ID is an error.
func (s *SQLiteStore) Append(ctx context.Context, b *Block) error {
	if err := validateForAppend(b); err != nil {
		return err
	}
	result, err := json.Marshal(b.QAResult)
	if err != nil {
		return fmt.Errorf("append sign-off %s: marshal qa result: %w", b.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signoffs
		(id, document_id, prepared_by, reviewed_by, date, status, classification, qa_result, completed, passed, signed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.DocumentID,
		b.PreparedBy,
		b.ReviewedBy,
		b.Date,
		string(b.Status),
		string(b.Classification),
		string(result),
		b.Completed,
		b.Passed,
		b.SignedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append sign-off %s: %w", b.ID, err)
	}
	return nil
}

// History returns every block for documentID in append order.
func (s *SQLiteStore) History(ctx context.Context, documentID string) ([]*Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, prepared_by, reviewed_by, date, status, classification, qa_result, completed, passed, signed_at
		FROM signoffs
		WHERE document_id = ?
		ORDER BY seq ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query sign-offs: %w", err)
	}
	defer rows.Close()

	blocks := []*Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sign-offs: %w", err)
	}
	return blocks, nil
}

// Latest returns the most recent block for documentID.
func (s *SQLiteStore) Latest(ctx context.Context, documentID string) (*Block, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, prepared_by, reviewed_by, date, status, classification, qa_result, completed, passed, signed_at
		FROM signoffs
		WHERE document_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, documentID)

	b, err := scanBlock(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (*Block, error) {
	var (
		b              Block
		status, class  string
		result, signed string
	)
	err := row.Scan(
		&b.ID,
		&b.DocumentID,
		&b.PreparedBy,
		&b.ReviewedBy,
		&b.Date,
		&status,
		&class,
		&result,
		&b.Completed,
		&b.Passed,
		&signed,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan sign-off: %w", err)
	}

	b.Status = document.Status(status)
	b.Classification = document.Classification(class)

	var qr qa.CheckResult
	if err := json.Unmarshal([]byte(result), &qr); err != nil {
		return nil, fmt.Errorf("decode qa result of %s: %w", b.ID, err)
	}
	b.QAResult = &qr

	b.SignedAt, err = time.Parse(time.RFC3339Nano, signed)
	if err != nil {
		return nil, fmt.Errorf("decode signed_at of %s: %w", b.ID, err)
	}
	return &b, nil
}
