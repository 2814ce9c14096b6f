package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
	"chancery/pkg/platform/sentinel"
	txcontext "chancery/pkg/platform/tx"
)

// PostgresStore persists documents in the documents table. All statements go
// through execer/querier so a transaction carried in context (document
// creation plus number allocation, or the first ledger save) is honored.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const documentColumns = `
	id, org_id, document_class, registration_number, registration_year,
	subject, description, status, decision, due_date,
	creator_id, last_editor_id, secret, has_ledger_entries, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.OrgID),
		doc.Class.String(),
		doc.RegistrationNumber,
		nullYear(doc.RegistrationYear),
		doc.Subject,
		doc.Description,
		doc.Status.String(),
		nullDecision(doc.Decision),
		doc.DueDate,
		uuid.UUID(doc.CreatorID),
		uuid.UUID(doc.LastEditorID),
		doc.Secret,
		doc.HasLedgerEntries,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(docID))
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

// Save updates the mutable columns. Registration number and year are
// deliberately not in the SET list; once assigned they never change.
func (s *PostgresStore) Save(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents SET
			subject = $2,
			description = $3,
			status = $4,
			decision = $5,
			due_date = $6,
			last_editor_id = $7,
			secret = $8,
			updated_at = $9
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		doc.Subject,
		doc.Description,
		doc.Status.String(),
		nullDecision(doc.Decision),
		doc.DueDate,
		uuid.UUID(doc.LastEditorID),
		doc.Secret,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListOverdue(ctx context.Context, now time.Time) ([]id.DocumentID, error) {
	query := `
		SELECT id FROM documents
		WHERE due_date IS NOT NULL
		  AND due_date < $1
		  AND status NOT IN ('archived', 'cancelled')
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("select overdue documents: %w", err)
	}
	defer rows.Close()

	var ids []id.DocumentID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan overdue document id: %w", err)
		}
		ids = append(ids, id.DocumentID(u))
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc       models.Document
		docID     uuid.UUID
		orgID     uuid.UUID
		class     string
		regNumber sql.NullInt64
		regYear   sql.NullInt64
		status    string
		decision  sql.NullString
		creator   uuid.UUID
		editor    uuid.UUID
	)
	err := row.Scan(
		&docID,
		&orgID,
		&class,
		&regNumber,
		&regYear,
		&doc.Subject,
		&doc.Description,
		&status,
		&decision,
		&doc.DueDate,
		&creator,
		&editor,
		&doc.Secret,
		&doc.HasLedgerEntries,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(docID)
	doc.OrgID = id.OrgID(orgID)
	doc.Class = id.DocumentClass(class)
	if regNumber.Valid {
		n := int(regNumber.Int64)
		doc.RegistrationNumber = &n
	}
	if regYear.Valid {
		doc.RegistrationYear = int(regYear.Int64)
	}
	doc.Status = models.LifecycleStatus(status)
	if decision.Valid {
		doc.Decision = models.TerminalDecision(decision.String)
	}
	doc.CreatorID = id.ActorID(creator)
	doc.LastEditorID = id.ActorID(editor)
	return &doc, nil
}

func nullDecision(d models.TerminalDecision) sql.NullString {
	if d == models.DecisionNone {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullYear(year int) sql.NullInt64 {
	if year == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(year), Valid: true}
}
