package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gymflow/internal/auth"
	"gymflow/internal/class"
	"gymflow/internal/config"
	"gymflow/internal/membership"
	"gymflow/internal/payment"
	"gymflow/internal/waitlist"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
}

type Deps struct {
	Memberships membership.Service
	Classes     class.Service
	Waitlists   waitlist.Service
	Payments    payment.Repository
	Reconciler  *payment.Reconciler
	Retries     *payment.RetryScheduler
}

func New(db *sqlx.DB, cfg *config.Config, deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	membershipHandler := membership.NewHandler(deps.Memberships, cfg.JWTSecret)
	classHandler := class.NewHandler(deps.Classes)
	waitlistHandler := waitlist.NewHandler(deps.Waitlists)
	paymentHandler := payment.NewHandler(deps.Payments)

	public := router.Group("/auth")
	{
		public.POST("/login", membershipHandler.Login)
	}

	// The gateway calls this back unauthenticated; it must always get 200.
	router.GET("/webhooks/payments", PaymentWebhook(deps.Reconciler))
	router.POST("/webhooks/payments", PaymentWebhook(deps.Reconciler))

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me/periods", membershipHandler.MyPeriods)
		protected.GET("/me/reservations", classHandler.MyReservations)
		protected.GET("/me/payments", paymentHandler.MyPayments)
		protected.POST("/plans/:planID/purchase", membershipHandler.Purchase)
		protected.POST("/plans/:planID/renew", membershipHandler.Renew)
		protected.POST("/checkin", membershipHandler.CheckIn)
		protected.POST("/sessions/:sessionID/reserve", classHandler.Reserve)
		protected.POST("/sessions/:sessionID/waitlist", waitlistHandler.Join)
		protected.POST("/reservations/:reservationID/cancel", classHandler.Cancel)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/plans", membershipHandler.CreatePlan)
		admin.POST("/sessions", classHandler.CreateSession)
		admin.GET("/sessions/:sessionID/roster", classHandler.Roster)
		admin.POST("/retry-sweep", TriggerRetrySweep(deps.Retries))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	addr := ":" + port
	return s.router.Run(addr)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
