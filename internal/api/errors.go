package api

import (
	"errors"
	"net/http"

	"fitclass/internal/logger"
	"fitclass/internal/tenant"

	"github.com/gin-gonic/gin"
)

// Fail aborts the request with an ErrorResponse.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// RespondError handles the errors every package shares: tenant failures and
// anything unexpected. Handlers map their own domain errors first and fall
// through to it.
func RespondError(c *gin.Context, err error) {
	log := logger.FromContext(c.Request.Context())

	var cte *tenant.CrossTenantAccessError
	switch {
	case errors.As(err, &cte):
		log.Warn("cross-tenant access denied",
			"kind", cte.Kind,
			"id", cte.ID,
			"caller_scope", cte.Expected.String(),
			"record_scope", cte.Actual.String(),
		)
		Fail(c, http.StatusNotFound, cte.Kind+" not found")
	case errors.Is(err, tenant.ErrInvalidScope):
		Fail(c, http.StatusForbidden, "gym is not part of your organisation")
	case errors.Is(err, tenant.ErrNoScope), errors.Is(err, tenant.ErrMissingTenantContext):
		log.Error("scoped call without tenant context", "error", err, "path", c.FullPath())
		Fail(c, http.StatusInternalServerError, "Internal server error")
	default:
		log.Error("request failed", "error", err, "path", c.FullPath())
		Fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
