// Package api exposes the HTTP surface of the service: one chi router,
// JWT-authenticated except for health and the auth endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nandhanalahari/preva/internal/config"
	"github.com/nandhanalahari/preva/internal/database"
)

// Server represents the API server
type Server struct {
	config   *config.Config
	router   chi.Router
	handlers *Handlers
	db       *database.DB
}

// NewServer creates the router with all middleware and routes wired
func NewServer(cfg *config.Config, db *database.DB, handlers *Handlers) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: handlers,
		db:       db,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.handlers.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handlers.Register)
			r.Post("/login", s.handlers.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.config.Server.JWTSecret, s.db))

			r.Get("/me", s.handlers.Me)
			r.Put("/me/contact", s.handlers.UpdateContact)

			r.Route("/patients", func(r chi.Router) {
				r.Post("/", s.handlers.CreatePatient)
				r.Get("/", s.handlers.ListPatients)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handlers.GetPatient)
					r.Post("/blood-pressure", s.handlers.RecordBloodPressure)
					r.Get("/credential", s.handlers.GetPatientCredential)

					r.Post("/visits", s.handlers.CreateVisit)
					r.Get("/visits", s.handlers.ListVisits)
					r.Get("/risk-reasoning", s.handlers.RiskReasoning)
					r.Get("/daily-summary", s.handlers.DailySummary)
					r.Get("/summary-audio", s.handlers.SummaryAudio)

					r.Post("/chat", s.handlers.SendChat)
					r.Get("/chat", s.handlers.ListChat)
					r.Post("/chat/read", s.handlers.MarkChatRead)

					r.Get("/messages", s.handlers.ListPatientMessages)
					r.Post("/messages/read", s.handlers.MarkPatientMessagesRead)
				})
			})

			r.Route("/appointments", func(r chi.Router) {
				r.Get("/", s.handlers.ListAppointments)
				r.Post("/", s.handlers.CreateAppointment)
				r.Put("/{id}", s.handlers.UpdateAppointment)
				r.Delete("/{id}", s.handlers.DeleteAppointment)
			})

			r.Get("/chat/unread-counts", s.handlers.UnreadCounts)

			r.Route("/patient-messages", func(r chi.Router) {
				r.Post("/", s.handlers.SubmitPatientMessage)
				r.Post("/{id}/reply", s.handlers.ReplyPatientMessage)
			})

			r.Route("/speech", func(r chi.Router) {
				r.Post("/synthesize", s.handlers.Synthesize)
				r.Post("/transcribe", s.handlers.Transcribe)
			})

			r.Get("/audit/events", s.handlers.AuditEvents)
		})
	})
}

// Handler returns the assembled http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}
