package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockpilot/stockpilot-go/internal/crypto"
	"github.com/stockpilot/stockpilot-go/internal/middleware"
)

// RouterConfig carries the HTTP-level settings of NewRouter.
type RouterConfig struct {
	Tokens      *crypto.TokenManager
	CORSOrigins []string
	// AuthRPS and AuthBurst bound register/login per client IP. Zero disables
	// the limiter.
	AuthRPS   float64
	AuthBurst int
}

// NewRouter wires every API route onto a chi router.
func NewRouter(cfg RouterConfig, auth *AuthHandler, user *UserHandler, products *ProductHandler, reports *ReportHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.AuthRPS > 0 {
				r.Use(middleware.RateLimit(cfg.AuthRPS, cfg.AuthBurst))
			}
			r.Post("/auth/register", auth.HandleRegister)
			r.Post("/auth/login", auth.HandleLogin)
		})
		r.Post("/auth/refresh", auth.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.Tokens))

			r.Get("/auth/me", auth.HandleMe)

			r.Patch("/user/password", user.HandleChangePassword)
			r.Patch("/user/email", user.HandleChangeEmail)
			r.Get("/user/profile", user.HandleGetProfile)
			r.Patch("/user/profile", user.HandleUpdateProfile)

			r.Get("/products", products.HandleList)
			r.Post("/products", products.HandleCreate)
			r.Get("/products/{id}", products.HandleGet)
			r.Patch("/products/{id}", products.HandleUpdate)
			r.Put("/products/{id}/inactive", products.HandleToggleInactive)
			r.Delete("/products/{id}", products.HandleDelete)

			r.Get("/reports/summary", reports.HandleSummary)
		})
	})

	return r
}
