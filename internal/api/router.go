package api

import (
	"net/http"
	"studyhub/internal/api/handler"
	"studyhub/internal/api/middleware"
	"studyhub/internal/app/service"
	"studyhub/internal/common/security"
	"studyhub/internal/platform/metrics"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type RouterOptions struct {
	AllowedOrigins []string
	CookieSecure   bool
}

func NewRouter(
	authService *service.AuthService,
	assignmentService *service.AssignmentService,
	submissionService *service.SubmissionService,
	gradingService *service.GradingService,
	leaderboardService *service.LeaderboardService,
	tokens *security.TokenManager,
	opts RouterOptions,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Looks for a token in "Authorization: Bearer T" and then the jwt cookie.
	// Invalid tokens only matter on routes behind requireAuth.
	r.Use(jwtauth.Verifier(tokens.JWTAuth()))
	requireAuth := middleware.Authenticator(authService, log)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService, requireAuth, opts.CookieSecure)
		v1.Route("/auth", authHandler.RegisterRoutes)

		assignmentHandler := handler.NewAssignmentHandler(assignmentService, submissionService, requireAuth)
		v1.Route("/assignments", assignmentHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(submissionService, gradingService, requireAuth)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)
	})

	return r
}
