package handlers

import (
	"net/http"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/auth"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterOptions struct {
	JWTSecret   string
	CORSOrigins []string
}

// NewRouter puts the gateway mux behind request ids, logging, panic
// recovery, CORS and authentication. Ledger and reporting routes are
// restricted to managers.
func NewRouter(gateway http.Handler, logger *zap.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return auth.HTTPMiddleware(next, opts.JWTSecret)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin, models.RoleManager))
		r.Method(http.MethodPost, "/v1/payments/status", gateway)
		r.Method(http.MethodPost, "/v1/payments/status/bulk", gateway)
		r.Method(http.MethodPost, "/v1/payments/recompute", gateway)
		r.Method(http.MethodGet, "/v1/payments", gateway)
		r.Method(http.MethodGet, "/v1/payments/register", gateway)
		r.Method(http.MethodGet, "/v1/dashboard", gateway)
	})
	r.Handle("/*", gateway)
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
