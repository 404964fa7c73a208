package gym

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitclass/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupGymRouter(repo Repository, scope *tenant.Scope) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if scope != nil {
			c.Request = c.Request.WithContext(tenant.WithScope(c.Request.Context(), *scope))
		}
		c.Next()
	})

	h := NewHandler(NewService(repo))
	router.GET("/gyms", h.ListGyms)
	router.GET("/gyms/:gymID", h.GetGym)
	return router
}

func TestHandler_GetGymForeignIsNotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetGymByID", mock.Anything, "gym-9").Return(&Gym{ID: "gym-9", OrganisationID: "org-b"}, nil)

	router := setupGymRouter(repo, &tenant.Scope{OrganisationID: "org-a"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/gyms/gym-9", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "org-b")
}

func TestHandler_GetGymMissing(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetGymByID", mock.Anything, "gym-404").Return(nil, ErrGymNotFound)

	router := setupGymRouter(repo, &tenant.Scope{OrganisationID: "org-a"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gyms/gym-404", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListGymsWithoutScope(t *testing.T) {
	router := setupGymRouter(new(MockRepository), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gyms", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_ListGyms(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListByOrganisation", mock.MatchedBy(func(ctx context.Context) bool { return ctx != nil }), "org-a").
		Return([]Gym{{ID: "gym-1", OrganisationID: "org-a", Name: "Central"}}, nil)

	router := setupGymRouter(repo, &tenant.Scope{OrganisationID: "org-a"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gyms", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Central")
}
