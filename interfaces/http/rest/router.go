package rest

import (
	"net/http"

	"tradepulse/application/services"
	"tradepulse/interfaces/http/rest/handlers"
	"tradepulse/interfaces/http/rest/middleware"
	"tradepulse/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	posts      *services.PostService
	engagement *services.EngagementService
	assembler  *services.FeedAssembler
	validator  *auth.JWTValidator
	enableCORS bool
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	posts *services.PostService,
	engagement *services.EngagementService,
	assembler *services.FeedAssembler,
	validator *auth.JWTValidator,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		posts:      posts,
		engagement: engagement,
		assembler:  assembler,
		validator:  validator,
		enableCORS: enableCORS,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.tradepulse.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		feedHandler := handlers.NewFeedHandler(rt.assembler, rt.logger)
		postHandler := handlers.NewPostHandler(rt.posts, rt.logger)
		engagementHandler := handlers.NewEngagementHandler(rt.engagement, rt.logger)

		// Read paths are public
		r.Get("/feed", feedHandler.GetFeed)
		r.Get("/posts/{postID}", postHandler.GetPost)
		r.Get("/posts/{postID}/comments", postHandler.ListComments)
		r.Get("/users/{username}/followers", engagementHandler.Followers)
		r.Get("/users/{username}/following", engagementHandler.Following)

		// Write paths require an authenticated user
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.validator, rt.logger))

			r.Route("/posts", func(r chi.Router) {
				r.Post("/", postHandler.CreatePost)
				r.Put("/{postID}", postHandler.UpdatePost)
				r.Delete("/{postID}", postHandler.DeletePost)

				r.Post("/{postID}/comments", postHandler.AddComment)
				r.Delete("/{postID}/comments/{commentID}", postHandler.DeleteComment)

				r.Post("/{postID}/vote", engagementHandler.Vote)
				r.Delete("/{postID}/vote", engagementHandler.Unvote)
				r.Post("/{postID}/repost", engagementHandler.Repost)
				r.Delete("/{postID}/repost", engagementHandler.Unrepost)
			})

			r.Route("/users", func(r chi.Router) {
				r.Post("/{username}/follow", engagementHandler.Follow)
				r.Delete("/{username}/follow", engagementHandler.Unfollow)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
