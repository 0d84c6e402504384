package handlers

import (
	"net/http"

	"github.com/upb/tenant-control-plane/middleware"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses and records the
// audit outcome. Handlers stay thin: they call the service or accessor,
// then hand any failure here.
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	if err == nil {
		return
	}
	middleware.WriteDomainError(r.Context(), w, err, logger)
}
