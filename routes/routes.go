package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/tournament-engine/docs"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/middleware"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	Match       *handlers.MatchHandler
	Dashboard   *handlers.DashboardHandler
	Health      *handlers.HealthHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, jwtSecret []byte, allowedOrigins []string, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health.Check)

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(docs.SwaggerJSON)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Live-лента не ограничена таймаутом запроса.
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	organizerOnly := func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(services.RoleOrganizer))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Post("/auth/token", h.Auth.Token)
		r.Get("/dashboard/stats", h.Dashboard.Stats)

		r.Route("/tournaments", func(r chi.Router) {
			// Публичные маршруты для просмотра турниров
			r.Get("/", h.Tournament.ListHandler)
			r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
			r.Get("/{tournamentID}/standings", h.Tournament.StandingsHandler)
			r.Get("/{tournamentID}/bracket", h.Tournament.BracketHandler)
			r.Get("/{tournamentID}/matches", h.Tournament.MatchesHandler)
			r.Post("/{tournamentID}/registrations", h.Participant.Register)

			// Защищенные маршруты только для организаторов
			r.Group(func(r chi.Router) {
				organizerOnly(r)
				r.Post("/", h.Tournament.CreateHandler)
				r.Patch("/{tournamentID}", h.Tournament.UpdateHandler)
				r.Post("/{tournamentID}/open", h.Tournament.OpenHandler)
				r.Post("/{tournamentID}/start", h.Tournament.StartHandler)
				r.Post("/{tournamentID}/cancel", h.Tournament.CancelHandler)
				r.Get("/{tournamentID}/registrations", h.Participant.List)
			})
		})

		r.Route("/registrations/{participantID}", func(r chi.Router) {
			organizerOnly(r)
			r.Get("/", h.Participant.Get)
			r.Post("/approve", h.Participant.Approve)
			r.Post("/reject", h.Participant.Reject)
			r.Post("/payment", h.Participant.ConfirmPayment)
			r.Delete("/", h.Participant.Withdraw)
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", h.Match.GetHandler)

			r.Group(func(r chi.Router) {
				organizerOnly(r)
				r.Post("/result", h.Match.SubmitResultHandler)
				r.Post("/live", h.Match.MarkLiveHandler)
				r.Post("/pending", h.Match.MarkPendingHandler)
				r.Put("/schedule", h.Match.ScheduleHandler)
				r.Post("/advance", h.Match.AdvanceHandler)
			})
		})
	})
}
