package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/middleware"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/scoped"
	"github.com/upb/tenant-control-plane/services"
	"github.com/upb/tenant-control-plane/utils"
	"go.uber.org/zap"
)

// documentsCounter is the usage counter tracking stored documents per business
const documentsCounter = "documents"

// batch sizes are capped so a single request cannot hold row locks for an
// unbounded transaction
const maxBatchOperations = 100

var allowedFilterOps = []string{"==", "!=", ">", ">=", "<", "<="}

var allowedBatchKinds = []string{
	string(repositories.DocumentOpCreate),
	string(repositories.DocumentOpUpdate),
	string(repositories.DocumentOpDelete),
}

// UsageRecorder records usage counter changes. *usage.Service is the
// production implementation.
type UsageRecorder interface {
	Record(ctx context.Context, businessID uuid.UUID, counter string, delta int64) error
}

// DocumentHandler handles document CRUD over the scoped accessor
type DocumentHandler struct {
	usage  UsageRecorder
	tx     repositories.TransactionManager
	logger *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(usage UsageRecorder, tx repositories.TransactionManager, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		usage:  usage,
		tx:     tx,
		logger: logger,
	}
}

type createDocumentRequest struct {
	ID   string                 `json:"id" validate:"required,max=255"`
	Data map[string]interface{} `json:"data" validate:"required"`
}

type updateDocumentRequest struct {
	Data map[string]interface{} `json:"data" validate:"required"`
}

type queryFilter struct {
	Field string      `json:"field" validate:"required"`
	Op    string      `json:"op" validate:"required"`
	Value interface{} `json:"value"`
}

type queryDocumentsRequest struct {
	Filters    []queryFilter `json:"filters"`
	OrderBy    string        `json:"orderBy"`
	Descending bool          `json:"descending"`
	Limit      int           `json:"limit" validate:"gte=0,lte=500"`
}

type batchOperation struct {
	Kind string                 `json:"kind" validate:"required"`
	ID   string                 `json:"id" validate:"required,max=255"`
	Data map[string]interface{} `json:"data,omitempty"`
}

type batchRequest struct {
	Operations []batchOperation `json:"operations" validate:"required,min=1"`
}

// accessor pulls the scoped accessor installed by the authorization
// middleware. An authorized caller without one has no business context
// (super admin on a platform-wide token); an unauthorized caller reaching
// here means the route is wired wrong and fails closed.
func (h *DocumentHandler) accessor(w http.ResponseWriter, r *http.Request) *scoped.Accessor {
	accessor := middleware.GetAccessor(r.Context())
	if accessor != nil {
		return accessor
	}

	if middleware.GetAuthContext(r.Context()) != nil {
		HandleServiceError(w, r, services.ErrNoBusinessContext, h.logger)
		return nil
	}

	h.logger.Error("document handler reached without scoped accessor",
		zap.String("path", r.URL.Path))
	_ = utils.WriteUnauthorized(w, "")
	return nil
}

// HandleGet handles GET /api/v1/documents/{collection}/{id}
func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	accessor := h.accessor(w, r)
	if accessor == nil {
		return
	}

	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	doc, err := accessor.Read(r.Context(), collection, id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, doc)
}

// HandleQuery handles POST /api/v1/documents/{collection}/query
func (h *DocumentHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	accessor := h.accessor(w, r)
	if accessor == nil {
		return
	}

	collection := chi.URLParam(r, "collection")

	var req queryDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	query := accessor.Query(collection)
	for _, f := range req.Filters {
		if err := utils.ValidateOneOf(f.Op, "op", allowedFilterOps); err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		query = query.Where(f.Field, f.Op, f.Value)
	}
	if req.OrderBy != "" {
		if req.Descending {
			query = query.OrderByDesc(req.OrderBy)
		} else {
			query = query.OrderBy(req.OrderBy)
		}
	}
	if req.Limit > 0 {
		query = query.Limit(req.Limit)
	}

	docs, err := query.Fetch(r.Context())
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, docs)
}

// HandleCreate handles POST /api/v1/documents/{collection}
func (h *DocumentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	accessor := h.accessor(w, r)
	if accessor == nil {
		return
	}

	collection := chi.URLParam(r, "collection")

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	// the write and the counter increment commit together
	var doc *models.Document
	err := h.tx.InTransaction(r.Context(), func(ctx context.Context) error {
		created, err := accessor.Create(ctx, collection, req.ID, req.Data)
		if err != nil {
			return err
		}
		doc = created
		return h.usage.Record(ctx, accessor.BusinessID(), documentsCounter, 1)
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, doc)
}

// HandleUpdate handles PUT /api/v1/documents/{collection}/{id}
func (h *DocumentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	accessor := h.accessor(w, r)
	if accessor == nil {
		return
	}

	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	doc, err := accessor.Update(r.Context(), collection, id, req.Data)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, doc)
}

// HandleDelete handles DELETE /api/v1/documents/{collection}/{id}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	accessor := h.accessor(w, r)
	if accessor == nil {
		return
	}

	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	err := h.tx.InTransaction(r.Context(), func(ctx context.Context) error {
		if err := accessor.Delete(ctx, collection, id); err != nil {
			return err
		}
		return h.usage.Record(ctx, accessor.BusinessID(), documentsCounter, -1)
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleBatch handles POST /api/v1/documents/{collection}/batch
func (h *DocumentHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	accessor := h.accessor(w, r)
	if accessor == nil {
		return
	}

	collection := chi.URLParam(r, "collection")

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}
	if len(req.Operations) > maxBatchOperations {
		_ = utils.WriteBadRequest(w, "too many operations in batch",
			map[string]interface{}{"max": maxBatchOperations})
		return
	}

	batch := accessor.Batch()
	var delta int64

	for _, op := range req.Operations {
		if err := utils.ValidateOneOf(op.Kind, "kind", allowedBatchKinds); err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}

		switch repositories.DocumentOpKind(op.Kind) {
		case repositories.DocumentOpCreate:
			batch.Create(collection, op.ID, op.Data)
			delta++
		case repositories.DocumentOpUpdate:
			batch.Update(collection, op.ID, op.Data)
		case repositories.DocumentOpDelete:
			batch.Delete(collection, op.ID)
			delta--
		}
	}

	if err := batch.Commit(r.Context()); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	if delta != 0 {
		h.recordUsage(r.Context(), accessor.BusinessID(), delta)
	}

	_ = utils.WriteOK(w, map[string]interface{}{"applied": batch.Size()})
}

// recordUsage reconciles the documents counter after a committed batch. The
// batch store runs its own transaction, so by the time the delta is known the
// writes already happened; a failed counter update is logged and absorbed
// rather than turned into a client error.
func (h *DocumentHandler) recordUsage(ctx context.Context, businessID uuid.UUID, delta int64) {
	if err := h.usage.Record(ctx, businessID, documentsCounter, delta); err != nil {
		h.logger.Warn("failed to record document usage",
			zap.String("business_id", businessID.String()),
			zap.Int64("delta", delta),
			zap.Error(err))
	}
}

func toDetails(fields map[string]string) map[string]interface{} {
	if fields == nil {
		return nil
	}
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
