package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/entrevo/interview-backend/internal/api/handlers"
	"github.com/entrevo/interview-backend/internal/api/middleware"
	"github.com/entrevo/interview-backend/internal/cache"
	"github.com/entrevo/interview-backend/internal/config"
	"github.com/entrevo/interview-backend/internal/interview"
	"github.com/entrevo/interview-backend/internal/queue"
	"github.com/entrevo/interview-backend/internal/response"
	"github.com/entrevo/interview-backend/internal/session"
	"github.com/entrevo/interview-backend/internal/webhook"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config

	interviews *interview.Service
	responses  *response.Service
	webhooks   *webhook.Service
	queue      *queue.Client
	manager    *session.Manager
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	c := cache.NewCache(rdb)
	qc := queue.NewClient(cfg.Redis)
	hooks := webhook.NewService(db, qc)
	ivs := interview.NewService(db, c, time.Duration(cfg.Session.CacheTTLSec)*time.Second, hooks)
	resp := response.NewService(db, c)

	return &Router{
		mux:        chi.NewRouter(),
		db:         db,
		redis:      rdb,
		cfg:        cfg,
		interviews: ivs,
		responses:  resp,
		webhooks:   hooks,
		queue:      qc,
		manager:    session.NewManager(ivs, resp, time.Duration(cfg.Session.TickIntervalSec)*time.Second),
	}
}

// SessionManager exposes the live-session registry so main can drain it on
// shutdown.
func (rt *Router) SessionManager() *session.Manager {
	return rt.manager
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(float64(rt.cfg.Server.RateLimitRPS), rt.cfg.Server.RateLimitBurst)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		ivH := handlers.NewInterviewHandler(rt.interviews)
		sessH := handlers.NewSessionHandler(rt.interviews, rt.manager)
		r.Route("/interviews", func(r chi.Router) {
			r.Post("/", ivH.Create)
			r.Get("/", ivH.List)
			r.Get("/{id}", ivH.Get)
			r.Delete("/{id}", ivH.Delete)
			r.Patch("/{id}/status", ivH.UpdateStatus)
			r.Get("/{id}/session", sessH.Attach)
		})

		respH := handlers.NewResponseHandler(rt.responses, rt.queue, rt.cfg.Clips)
		r.Route("/responses", func(r chi.Router) {
			r.Post("/", respH.Submit)
			r.Post("/clip", respH.UploadClip)
		})

		whH := handlers.NewWebhookHandler(rt.webhooks)
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/", whH.Create)
			r.Get("/", whH.List)
			r.Delete("/{id}", whH.Delete)
		})
	})

	return r
}
