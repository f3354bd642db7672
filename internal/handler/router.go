package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// RouterConfig collects what NewRouter mounts. Metrics is optional.
type RouterConfig struct {
	Events      *EventHandler
	Tickets     *TicketHandler
	Health      Pinger
	Metrics     http.Handler
	Logger      *logrus.Logger
	CORSOrigins []string
}

// NewRouter builds the full HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))

	r.Get("/health", Health(cfg.Health))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/events", func(r chi.Router) {
		r.Post("/", cfg.Events.CreateEvent)
		r.Get("/", cfg.Events.ListEvents)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", cfg.Events.GetEvent)
			r.Post("/ticket-types", cfg.Events.CreateTicketType)
			r.Get("/ticket-types", cfg.Events.ListTicketTypes)
			r.Post("/tickets", cfg.Tickets.Issue)
			r.Get("/tickets", cfg.Tickets.ListTickets)
			r.Get("/stats", cfg.Tickets.Stats)
		})
	})

	r.Route("/tickets/{code}", func(r chi.Router) {
		r.Get("/", cfg.Tickets.GetTicket)
		r.Get("/qr", cfg.Tickets.QR)
		r.Get("/validations", cfg.Tickets.ListValidations)
		r.Post("/assign", cfg.Tickets.Assign)
		r.Post("/validate", cfg.Tickets.Validate)
	})

	r.Post("/scan", cfg.Tickets.Scan)
	r.Post("/codes", cfg.Tickets.GenerateCode)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}).Handler(r)
}
