package server

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/famsplit/internal/middleware"
	"github.com/mmynk/famsplit/internal/service"
	"github.com/mmynk/famsplit/pkg/api/apiconnect"
)

func (s *Server) routes(
	authSvc *service.AuthService,
	familySvc *service.FamilyService,
	billSvc *service.BillService,
	eventSvc *service.EventService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(cors.Handler(corsOptions(s.cfg.CORSOrigins)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Get("/events", s.serveEvents)

		r.Mount(apiconnect.NewAuthServiceHandler(authSvc, s.interceptors(false)))
		r.Mount(apiconnect.NewFamilyServiceHandler(familySvc, s.interceptors(false)))
		r.Mount(apiconnect.NewBillServiceHandler(billSvc, s.interceptors(true)))
		r.Mount(apiconnect.NewEventServiceHandler(eventSvc, s.interceptors(true)))
	})

	return r
}

// corsOptions allows cookies only for an explicit origin list; a wildcard
// origin never carries credentials.
func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		ExposedHeaders:   []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}
}
