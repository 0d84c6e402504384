package handlers

import (
	"net/http"

	"github.com/upb/tenant-control-plane/middleware"
	"github.com/upb/tenant-control-plane/utils"
	"go.uber.org/zap"
)

// MeResponse describes the caller as the authorization pipeline resolved it
type MeResponse struct {
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	IsSuperAdmin bool     `json:"is_super_admin"`
	BusinessID   string   `json:"business_id,omitempty"`
	BusinessName string   `json:"business_name,omitempty"`
	Plan         string   `json:"plan,omitempty"`
	Status       string   `json:"status,omitempty"`
	Permissions  []string `json:"permissions"`
}

// MeHandler reports the resolved identity and business of the current request
type MeHandler struct {
	logger *zap.Logger
}

// NewMeHandler creates a new MeHandler
func NewMeHandler(logger *zap.Logger) *MeHandler {
	return &MeHandler{logger: logger}
}

// HandleMe handles GET /api/v1/me
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	if authCtx == nil {
		h.logger.Error("me handler reached without authorization")
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	response := MeResponse{
		UserID:       authCtx.UserID.String(),
		Email:        authCtx.Email,
		IsSuperAdmin: authCtx.IsSuperAdmin,
		Permissions:  []string{},
	}
	if authCtx.HasBusiness() {
		response.BusinessID = authCtx.BusinessID().String()
		response.BusinessName = authCtx.Business.Name
		response.Plan = authCtx.Business.Plan
		response.Status = string(authCtx.Business.Status)
	}
	if authCtx.Membership != nil {
		response.Permissions = authCtx.Membership.Permissions
	}

	_ = utils.WriteOK(w, response)
}
