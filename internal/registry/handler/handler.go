// Package handler wires the registry endpoints. Handlers stay thin: decode,
// delegate to the service, translate errors.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chancery/internal/registry/models"
	"chancery/internal/registry/service"
	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
	"chancery/pkg/platform/httputil"
	"chancery/pkg/requestcontext"
)

// Service defines the registry operations the handler depends on.
type Service interface {
	Create(ctx context.Context, actorID id.ActorID, req service.CreateRequest) (*models.Document, error)
	Get(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	History(ctx context.Context, docID id.DocumentID) ([]models.WorkflowStep, error)
	Update(ctx context.Context, docID id.DocumentID, actorID id.ActorID, patch service.UpdatePatch) (*models.Document, error)
	Cancel(ctx context.Context, docID id.DocumentID, actorID id.ActorID, notes string) (*models.Document, error)
	Archive(ctx context.Context, docID id.DocumentID, actorID id.ActorID) (*models.Document, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registry/documents", h.HandleCreate)
	r.Get("/registry/documents/{documentID}", h.HandleGet)
	r.Get("/registry/documents/{documentID}/history", h.HandleHistory)
	r.Patch("/registry/documents/{documentID}", h.HandleUpdate)
	r.Post("/registry/documents/{documentID}/cancel", h.HandleCancel)
	r.Post("/registry/documents/{documentID}/archive", h.HandleArchive)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actorID, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	svcReq, err := req.ToServiceRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.Create(ctx, actorID, svcReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "document creation failed",
			"request_id", requestID,
			"actor_id", actorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document created",
		"request_id", requestID,
		"document_id", doc.ID,
		"formatted_number", doc.FormattedNumber(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Get(ctx, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}

	history, err := h.service.History(ctx, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(history))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actorID, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.Update(ctx, docID, actorID, patch)
	if err != nil {
		h.logger.ErrorContext(ctx, "document update failed",
			"request_id", requestID,
			"document_id", docID,
			"actor_id", actorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document updated",
		"request_id", requestID,
		"document_id", docID,
		"status", doc.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actorID, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CancelDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.service.Cancel(ctx, docID, actorID, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Archive(ctx, docID, actorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (id.ActorID, bool) {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ActorID{}, false
	}
	return actorID, true
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (id.DocumentID, bool) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DocumentID{}, false
	}
	return docID, true
}
