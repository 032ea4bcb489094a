package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/studyroom/internal/auth"
	httpmw "github.com/cwrk-planet/studyroom/internal/transport/http/middleware"
	"github.com/cwrk-planet/studyroom/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterOptions struct {
	CORSOrigins []string
	// RateLimitRPS of zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

func NewRouter(h *Handler, authn *auth.Authenticator, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httpmw.WithRequestLoggerCtx)
	r.Use(httpmw.RequestLogger)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Authenticate(authn))
		if opts.RateLimitRPS > 0 {
			pr.Use(httpmw.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware)
		}
		pr.Use(middleware.Timeout(30 * time.Second))

		pr.Get("/stats", h.Stats)
		pr.Post("/join", h.JoinRoom)
		pr.Get("/users/{userId}/rooms", h.ListRooms)

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Post("/", h.CreateRoom)
			rm.Get("/", h.ListRooms)

			rm.Route("/{roomId}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Post("/timer", h.ControlTimer)
				rr.Get("/tasks", h.ListTasks)
				rr.Post("/tasks", h.AddTask)
				rr.Patch("/tasks/{taskId}", h.ToggleTask)
				rr.Get("/messages", h.ChatHistory)
				rr.Post("/messages", h.SendMessage)
			})
		})
	})

	return otelhttp.NewHandler(r, "studyroom.http")
}
