package server

import (
	"context"
	"net/http"
	"time"

	"fitclass/internal/auth"
	"fitclass/internal/booking"
	"fitclass/internal/config"
	"fitclass/internal/gym"
	"fitclass/internal/membership"
	"fitclass/internal/schedule"
	"fitclass/internal/tenant"

	"github.com/gin-gonic/gin"
)

// Services are the domain services the routes are served by.
type Services struct {
	Directory   tenant.GymDirectory
	Gyms        gym.Service
	Schedules   schedule.Service
	Bookings    booking.Service
	Memberships membership.Service
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, svc Services) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware(), RequestLoggingMiddleware(), MetricsMiddleware())

	limiter := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	authHandler := auth.NewHandler(cfg.JWTSecret, cfg.JWTRefreshSecret)
	gymHandler := gym.NewHandler(svc.Gyms)
	scheduleHandler := schedule.NewHandler(svc.Schedules)
	bookingHandler := booking.NewHandler(svc.Bookings)
	membershipHandler := membership.NewHandler(svc.Memberships)

	public := router.Group("/")
	public.Use(tenant.Bypass(), limiter)
	{
		public.GET("/health", Health)
		public.GET("/metrics", Metrics())
		public.POST("/auth/refresh", authHandler.Refresh)
	}

	// The rate limiter runs after authentication so buckets are per
	// organisation and client.
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(cfg.JWTSecret), limiter, tenant.Middleware(svc.Directory))
	{
		protected.GET("/gyms", gymHandler.ListGyms)
		protected.GET("/gyms/:gymID", gymHandler.GetGym)

		protected.GET("/classes/:classID", scheduleHandler.GetClass)
		protected.GET("/schedules", scheduleHandler.ListInstances)
		protected.GET("/schedules/:scheduleID", scheduleHandler.GetInstance)
		protected.POST("/schedules/:scheduleID/book", bookingHandler.Book)

		protected.GET("/bookings", bookingHandler.ListMine)
		protected.GET("/bookings/:bookingID", bookingHandler.GetBooking)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.Cancel)

		protected.GET("/memberships", membershipHandler.ListMine)
	}

	staff := protected.Group("/")
	staff.Use(auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	{
		staff.POST("/classes", scheduleHandler.CreateClass)
		staff.POST("/schedules", scheduleHandler.CreateInstance)
		staff.PUT("/schedules/:scheduleID", scheduleHandler.Reschedule)
		staff.POST("/schedules/:scheduleID/cancel", scheduleHandler.Cancel)
		staff.POST("/schedules/:scheduleID/start", scheduleHandler.Start)
		staff.POST("/schedules/:scheduleID/complete", scheduleHandler.Complete)
		staff.GET("/schedules/:scheduleID/bookings", bookingHandler.ListBySchedule)

		staff.POST("/bookings/:bookingID/check-in", bookingHandler.CheckIn)
		staff.POST("/bookings/:bookingID/check-out", bookingHandler.CheckOut)
		staff.POST("/bookings/:bookingID/no-show", bookingHandler.MarkNoShow)

		staff.POST("/memberships", membershipHandler.Grant)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+tenant.HeaderActiveGym)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
