// Package service orchestrates the document registration and routing
// workflow: numbering at creation, status derivation on every update, the
// append-only ledger, and best-effort notification fan-out.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chancery/internal/directory"
	"chancery/internal/notify"
	registrymetrics "chancery/internal/registry/metrics"
	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
	"chancery/pkg/platform/sentinel"
	"chancery/pkg/requestcontext"
)

// defaultFanoutCap bounds the notification tail of a single update so the
// request stays small and predictable even with huge distribution lists.
const defaultFanoutCap = 100

type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
	ListOverdue(ctx context.Context, now time.Time) ([]id.DocumentID, error)
}

type Ledger interface {
	AppendFirstSave(ctx context.Context, docID id.DocumentID, steps []models.WorkflowStep) (bool, error)
	Append(ctx context.Context, step models.WorkflowStep) error
	History(ctx context.Context, docID id.DocumentID) ([]models.WorkflowStep, error)
	ExpirePending(ctx context.Context, docID id.DocumentID, now time.Time) (int, error)
}

type Allocator interface {
	Allocate(ctx context.Context, orgID id.OrgID, class id.DocumentClass, year int) (int, string, error)
}

// StoreTx runs fn inside one unit of work; the postgres implementation
// carries a *sql.Tx in the context, the in-memory default just runs fn.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopTx struct{}

func (noopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service is the request-level use case layer for the general register.
type Service struct {
	documents DocumentStore
	ledger    Ledger
	allocator Allocator
	directory directory.Directory
	notifier  notify.Notifier
	tx        StoreTx
	logger    *slog.Logger
	metrics   *registrymetrics.Metrics
	fanoutCap int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

func WithFanoutCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanoutCap = n
		}
	}
}

// New constructs a Service.
func New(documents DocumentStore, ledger Ledger, allocator Allocator, dir directory.Directory, notifier notify.Notifier, opts ...Option) *Service {
	s := &Service{
		documents: documents,
		ledger:    ledger,
		allocator: allocator,
		directory: dir,
		notifier:  notifier,
		tx:        noopTx{},
		logger:    slog.Default(),
		fanoutCap: defaultFanoutCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries the fields accepted at registration time.
type CreateRequest struct {
	OrgID       id.OrgID
	Class       id.DocumentClass
	Subject     string
	Description string
	Secret      bool
	DueDate     *time.Time
	// Register requests a registration number at creation; the record then
	// starts in registered instead of draft.
	Register bool
}

// Create files a new document. When a number is requested, allocation and
// record insert happen in one unit of work: a record never exists without
// its number and a number is never burned without a record.
func (s *Service) Create(ctx context.Context, actorID id.ActorID, req CreateRequest) (*models.Document, error) {
	now := requestcontext.Now(ctx)
	doc, err := models.NewDocument(id.DocumentID(uuid.New()), req.OrgID, req.Class, req.Subject, req.Description, actorID, req.Secret, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, dErrors.MessageOf(err))
		}
		return nil, err
	}
	doc.DueDate = req.DueDate

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if req.Register {
			start := time.Now()
			number, _, err := s.allocator.Allocate(txCtx, req.OrgID, req.Class, now.Year())
			if err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.ObserveAllocate(start)
			}
			if err := doc.Register(number, now.Year()); err != nil {
				return err
			}
		}
		if err := s.documents.Create(txCtx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Register && s.metrics != nil {
		s.metrics.DocumentsRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "document created",
		"document_id", doc.ID,
		"org_id", doc.OrgID,
		"class", doc.Class,
		"status", doc.Status,
	)
	return doc, nil
}

// Get fetches a document by id.
func (s *Service) Get(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		return nil, wrapDocumentErr(err)
	}
	return doc, nil
}

// History returns the document's workflow ledger ordered by creation.
func (s *Service) History(ctx context.Context, docID id.DocumentID) ([]models.WorkflowStep, error) {
	if _, err := s.documents.FindByID(ctx, docID); err != nil {
		return nil, wrapDocumentErr(err)
	}
	history, err := s.ledger.History(ctx, docID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load workflow history")
	}
	return history, nil
}

// Cancel moves a document into the absorbing cancelled status. Only the
// creator or a privileged actor may cancel. The registration number is kept;
// numbers are never reclaimed.
func (s *Service) Cancel(ctx context.Context, docID id.DocumentID, actorID id.ActorID, notes string) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		return nil, wrapDocumentErr(err)
	}
	if actorID != doc.CreatorID && !requestcontext.Privileged(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the creator may cancel this document")
	}
	if err := doc.CanCancel(); err != nil {
		return nil, dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
	}

	now := requestcontext.Now(ctx)
	doc.Status = models.StatusCancelled
	doc.LastEditorID = actorID
	doc.UpdatedAt = now
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, wrapDocumentErr(err)
	}
	if err := s.ledger.Append(ctx, models.NewCancellationStep(docID, actorID, notes, now)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record cancellation")
	}

	s.logger.InfoContext(ctx, "document cancelled",
		"document_id", docID,
		"actor_id", actorID,
	)
	return doc, nil
}

// Archive moves a resolved document into the archived status. Archival is an
// explicit action outside the update path.
func (s *Service) Archive(ctx context.Context, docID id.DocumentID, actorID id.ActorID) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		return nil, wrapDocumentErr(err)
	}
	if err := doc.CanArchive(); err != nil {
		return nil, dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
	}

	doc.Status = models.StatusArchived
	doc.LastEditorID = actorID
	doc.UpdatedAt = requestcontext.Now(ctx)
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, wrapDocumentErr(err)
	}
	return doc, nil
}

func wrapDocumentErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "document store failure")
}
