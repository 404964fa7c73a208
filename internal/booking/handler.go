package booking

import (
	"errors"
	"net/http"

	"fitclass/internal/api"
	"fitclass/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.Fail(c, http.StatusNotFound, "booking not found")
	case errors.Is(err, ErrScheduleNotFound):
		api.Fail(c, http.StatusNotFound, "schedule not found")
	case errors.Is(err, ErrDuplicateBooking):
		api.Fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInsufficientCredits):
		api.Fail(c, http.StatusPaymentRequired, "insufficient credits")
	case errors.Is(err, ErrInvalidState):
		api.Fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTransient):
		api.Fail(c, http.StatusServiceUnavailable, err.Error())
	default:
		api.RespondError(c, err)
	}
}

// @Summary      Book a class
// @Description  Confirms a seat or joins the waitlist when the class is full.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        scheduleID path string true "Schedule ID"
// @Success      201 {object} booking.Booking
// @Failure      402 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /schedules/{scheduleID}/book [post]
func (h *Handler) Book(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateBookingRequest
	if c.Request.ContentLength > 0 {
		if !api.BindJSON(c, &req) {
			return
		}
	}

	memberID := userID
	if req.MemberID != "" && auth.IsStaff(c) {
		memberID = req.MemberID
	}

	b, err := h.service.CreateBooking(c.Request.Context(), memberID, c.Param("scheduleID"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListBySchedule is the staff roster for one class.
func (h *Handler) ListBySchedule(c *gin.Context) {
	bookings, err := h.service.ListBySchedule(c.Request.Context(), c.Param("scheduleID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// ListMine lists the caller's bookings. Staff may pass member_id.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	memberID := userID
	if m := c.Query("member_id"); m != "" && auth.IsStaff(c) {
		memberID = m
	}

	bookings, err := h.service.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, ok := h.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary      Cancel a booking
// @Description  Cancelling a confirmed booking refunds its credits and promotes the oldest waitlisted booking.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bookingID path string true "Booking ID"
// @Success      200 {object} booking.CancelResult
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if !api.BindJSON(c, &req) {
			return
		}
	}

	b, ok := h.loadOwned(c)
	if !ok {
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), b.ID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) CheckIn(c *gin.Context) {
	b, err := h.service.CheckIn(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) CheckOut(c *gin.Context) {
	b, err := h.service.CheckOut(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	b, err := h.service.MarkNoShow(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// loadOwned fetches the booking in the path. Members only see their own;
// anyone else's booking answers 404.
func (h *Handler) loadOwned(c *gin.Context) (*Booking, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	b, err := h.service.GetBooking(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if b.MemberID != userID && !auth.IsStaff(c) {
		api.Fail(c, http.StatusNotFound, "booking not found")
		return nil, false
	}
	return b, true
}
