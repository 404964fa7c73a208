package tenant

import (
	"net/http"
	"strings"

	"fitclass/internal/auth"
	"fitclass/internal/logger"

	"github.com/gin-gonic/gin"
)

// HeaderActiveGym lets a caller act in another gym of their organisation.
const HeaderActiveGym = "X-Active-Gym-ID"

// Middleware opens the scope for an authenticated request. It must run after
// auth.AuthMiddleware. The organisation comes from the token only; the gym
// comes from HeaderActiveGym when present, else the token's home gym.
func Middleware(dir GymDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, ok := auth.GetOrganisationID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organisation context required"})
			return
		}

		gym, _ := auth.GetGymID(c)
		if h := strings.TrimSpace(c.GetHeader(HeaderActiveGym)); h != "" {
			gym = h
		}

		ctx, err := Open(c.Request.Context(), dir, org, gym)
		if err != nil {
			logger.Warn("rejected tenant scope", "organisation_id", org, "gym_id", gym, "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "gym is not part of your organisation"})
			return
		}

		l := logger.FromContext(ctx).With("organisation_id", org, "gym_id", gym)
		if userID, ok := auth.GetUserID(c); ok {
			l = l.With("user_id", userID)
		}
		c.Request = c.Request.WithContext(logger.ContextWithLogger(ctx, l))
		c.Next()
	}
}

// Bypass marks routes that run without a tenant (login, health, metrics). Any
// scoped call they make fails with ErrNoScope.
func Bypass() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(Detach(c.Request.Context()))
		c.Next()
	}
}
