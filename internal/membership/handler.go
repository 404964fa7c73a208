package membership

import (
	"errors"
	"net/http"

	"fitclass/internal/api"
	"fitclass/internal/auth"
	"fitclass/internal/gym"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListMine returns the caller's memberships in the active organisation.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	ms, err := h.service.ListByMember(c.Request.Context(), userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

// Grant issues a membership to a member. Staff only.
func (h *Handler) Grant(c *gin.Context) {
	var req GrantMembershipRequest
	if !api.BindJSON(c, &req) {
		return
	}

	m, err := h.service.Grant(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidMembership):
			api.Fail(c, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, gym.ErrGymNotFound):
			api.Fail(c, http.StatusNotFound, "gym not found")
			return
		}
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}
