package gym

import (
	"errors"
	"net/http"

	"fitclass/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// @Summary      List gyms of the caller's organisation
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} gym.Gym
// @Router       /gyms [get]
func (h *Handler) ListGyms(c *gin.Context) {
	gyms, err := h.service.ListGyms(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gyms)
}

// @Summary      Get a gym
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Param        gymID path string true "Gym ID"
// @Success      200 {object} gym.Gym
// @Failure      404 {object} api.ErrorResponse
// @Router       /gyms/{gymID} [get]
func (h *Handler) GetGym(c *gin.Context) {
	gym, err := h.service.GetGym(c.Request.Context(), c.Param("gymID"))
	if err != nil {
		if errors.Is(err, ErrGymNotFound) {
			api.Fail(c, http.StatusNotFound, "gym not found")
			return
		}
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gym)
}
