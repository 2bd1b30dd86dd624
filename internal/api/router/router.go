package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"

	"gocontracts/internal/api/client"
	"gocontracts/internal/api/contract"
	"gocontracts/internal/pkg/cache"
	"gocontracts/internal/pkg/logger"
	"gocontracts/internal/pkg/middleware"
)

// Options reúne os Handlers e a infraestrutura opcional do roteador.
// TokenValidator nil desativa a autenticação; RateLimitCache nil desativa o rate limit.
type Options struct {
	ClientHandler   *client.Handler
	ContractHandler *contract.Handler
	Logger          logger.Logger

	TokenValidator  middleware.TokenValidator
	RateLimitCache  cache.Client
	RateLimit       int
	RateLimitPeriod time.Duration
	RequestTimeout  time.Duration
	Production      bool
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	r.Use(securityHeaders(opts))

	// --- 1. Rotas de Health Check ---
	r.Get("/ping", PingHandler)

	// --- 2. Rotas v1 ---
	r.Route("/v1", func(r chi.Router) {
		if opts.RateLimitCache != nil {
			r.Use(middleware.RateLimiter(opts.RateLimitCache, opts.RateLimit, opts.RateLimitPeriod, opts.Logger))
		}
		if opts.TokenValidator != nil {
			r.Use(middleware.NewAuthMiddleware(opts.TokenValidator))
		}

		r.Route("/clients", func(r chi.Router) {
			ch := opts.ClientHandler
			r.Post("/persons", ch.CreatePersonHandler)
			r.Post("/companies", ch.CreateCompanyHandler)

			r.Route("/{clientID}", func(r chi.Router) {
				r.Get("/", ch.GetClientHandler)
				r.Put("/", ch.UpdateClientHandler)
				r.Patch("/", ch.PatchClientHandler)
				r.With(adminOnly(opts)...).Delete("/", ch.DeleteClientHandler)

				kh := opts.ContractHandler
				r.Route("/contracts", func(r chi.Router) {
					r.Post("/", kh.CreateContractHandler)
					r.Get("/", kh.ListActiveHandler)
					r.Get("/sum", kh.SumActiveHandler)
					r.Get("/{contractID}", kh.GetContractHandler)
					r.Patch("/{contractID}/cost", kh.UpdateCostHandler)
					r.Post("/{contractID}/close", kh.CloseContractHandler)
				})
			})
		})
	})

	return r
}

// adminOnly só restringe a exclusão quando há autenticação.
func adminOnly(opts Options) []func(http.Handler) http.Handler {
	if opts.TokenValidator == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{middleware.RequireRole(middleware.RoleAdmin)}
}

func securityHeaders(opts Options) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sec.Process(w, r); err != nil {
				if opts.Logger != nil {
					opts.Logger.Warn("Requisição bloqueada pelos headers de segurança.", map[string]interface{}{"error": err.Error()})
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
