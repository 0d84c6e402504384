package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/tenant-control-plane/models"
	"go.uber.org/zap"
)

// AuditRecorder queues audit entries for asynchronous persistence.
// *audit.Service is the production implementation.
type AuditRecorder interface {
	Record(entry *models.AuditEntry)
}

// AuditMiddleware writes exactly one audit entry per request. It wraps the
// whole authorization chain: inner middleware and handlers report what
// happened through SetAuditOutcome and SetAuditActor, and the entry is
// emitted after the response is written, carrying the final status code.
type AuditMiddleware struct {
	recorder AuditRecorder
	logger   *zap.Logger
}

// NewAuditMiddleware creates a new AuditMiddleware
func NewAuditMiddleware(recorder AuditRecorder, logger *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{
		recorder: recorder,
		logger:   logger,
	}
}

// Audit records the authorization decision of each request
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, state := withAuditState(r.Context())

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		entry := models.NewAuditEntry(r.Method, r.URL.Path, models.AuditOutcomeSuccess).
			WithRequest(chimw.GetReqID(ctx), r.RemoteAddr, r.UserAgent()).
			WithStatus(ww.Status())
		state.apply(entry)

		m.recorder.Record(entry)
	})
}
