package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type Handler struct {
	accessSecret  string
	refreshSecret string
}

func NewHandler(accessSecret, refreshSecret string) *Handler {
	return &Handler{accessSecret: accessSecret, refreshSecret: refreshSecret}
}

// @Summary      Exchange a refresh token for an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body auth.RefreshRequest true "Refresh token"
// @Success      200 {object} auth.TokenResponse
// @Failure      401 {object} api.ErrorResponse
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, _, err := RefreshAccessToken(req.RefreshToken, h.refreshSecret, h.accessSecret)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
		case errors.Is(err, ErrInvalidTokenType):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token required"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		}
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token})
}
