package schedule

import (
	"errors"
	"net/http"
	"time"

	"fitclass/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type ConflictResponse struct {
	Error               string    `json:"error"`
	Resource            Resource  `json:"resource"`
	ResourceID          string    `json:"resource_id"`
	ConflictingSchedule string    `json:"conflicting_schedule_id"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var ce *ConflictError
	switch {
	case errors.As(err, &ce):
		c.AbortWithStatusJSON(http.StatusConflict, ConflictResponse{
			Error:               "scheduling conflict",
			Resource:            ce.Resource,
			ResourceID:          ce.ResourceID,
			ConflictingSchedule: ce.ConflictingID,
			Start:               ce.Start,
			End:                 ce.End,
		})
	case errors.Is(err, ErrNotFound):
		api.Fail(c, http.StatusNotFound, "schedule not found")
	case errors.Is(err, ErrClassNotFound):
		api.Fail(c, http.StatusNotFound, "class not found")
	case errors.Is(err, ErrInvalidTimeRange):
		api.Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		api.Fail(c, http.StatusConflict, err.Error())
	default:
		api.RespondError(c, err)
	}
}

// @Summary      Create a class definition
// @Tags         classes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body schedule.CreateClassRequest true "Class"
// @Success      201 {object} schedule.ClassDefinition
// @Router       /classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if !api.BindJSON(c, &req) {
		return
	}

	class, err := h.service.CreateClass(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

func (h *Handler) GetClass(c *gin.Context) {
	class, err := h.service.GetClass(c.Request.Context(), c.Param("classID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

// @Summary      Schedule a class
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body schedule.CreateInstanceRequest true "Schedule"
// @Success      201 {object} schedule.Instance
// @Failure      409 {object} schedule.ConflictResponse
// @Router       /schedules [post]
func (h *Handler) CreateInstance(c *gin.Context) {
	var req CreateInstanceRequest
	if !api.BindJSON(c, &req) {
		return
	}

	inst, err := h.service.CreateInstance(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inst)
}

func (h *Handler) GetInstance(c *gin.Context) {
	inst, err := h.service.GetInstance(c.Request.Context(), c.Param("scheduleID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// ListInstances returns schedules starting in [from, to). Both default to a
// week starting today.
func (h *Handler) ListInstances(c *gin.Context) {
	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 7)

	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			api.Fail(c, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		if c.Query("to") == "" {
			to = from.AddDate(0, 0, 7)
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			api.Fail(c, http.StatusBadRequest, "to must be RFC3339")
			return
		}
	}

	instances, err := h.service.ListInstances(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instances)
}

func (h *Handler) Reschedule(c *gin.Context) {
	var req RescheduleRequest
	if !api.BindJSON(c, &req) {
		return
	}

	inst, err := h.service.Reschedule(c.Request.Context(), c.Param("scheduleID"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (h *Handler) Cancel(c *gin.Context) {
	var req CancelRequest
	if !api.BindJSON(c, &req) {
		return
	}

	inst, err := h.service.CancelInstance(c.Request.Context(), c.Param("scheduleID"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (h *Handler) Start(c *gin.Context) {
	inst, err := h.service.StartInstance(c.Request.Context(), c.Param("scheduleID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (h *Handler) Complete(c *gin.Context) {
	inst, err := h.service.CompleteInstance(c.Request.Context(), c.Param("scheduleID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}
