package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dorofeev01/matchday-system/handlers"
	"github.com/Dorofeev01/matchday-system/middleware"
	"github.com/Dorofeev01/matchday-system/models"
)

// SetupRoutes wires the full HTTP surface. Reads are public; every
// mutation requires a token, with the role narrowing done here and the
// ownership checks done in the services.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	tournamentHandler *handlers.TournamentHandler,
	registrationHandler *handlers.RegistrationHandler,
	matchHandler *handlers.MatchHandler,
	standingsHandler *handlers.StandingsHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.RequireRole(models.RoleOrganizer)
	managerOnly := middleware.RequireRole(models.RoleManager)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/registrations", registrationHandler.ListHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListMatchesHandler)
		r.Get("/{tournamentID}/standings", standingsHandler.GetStandingsHandler)
		r.Get("/{tournamentID}/leaders/goals", standingsHandler.GetGoalLeadersHandler)
		r.Get("/{tournamentID}/leaders/assists", standingsHandler.GetAssistLeadersHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Patch("/{tournamentID}", tournamentHandler.UpdateHandler)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
			r.Post("/{tournamentID}/publish", tournamentHandler.PublishHandler)
			r.Post("/{tournamentID}/close-registration", tournamentHandler.CloseRegistrationHandler)
			r.Post("/{tournamentID}/cancel", tournamentHandler.CancelHandler)
			r.Post("/{tournamentID}/registrations/{teamID}/approve", registrationHandler.ApproveHandler)
			r.Post("/{tournamentID}/registrations/{teamID}/reject", registrationHandler.RejectHandler)
			r.Post("/{tournamentID}/fixtures", matchHandler.GenerateFixturesHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(managerOnly)

			r.Post("/{tournamentID}/registrations", registrationHandler.RegisterHandler)
			r.Post("/{tournamentID}/registrations/{teamID}/withdraw", registrationHandler.WithdrawHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetMatchHandler)
		r.Get("/{matchID}/events", matchHandler.ListEventsHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/{matchID}/result", matchHandler.RecordResultHandler)
			r.Post("/{matchID}/start", matchHandler.StartHandler)
			r.Post("/{matchID}/postpone", matchHandler.PostponeHandler)
			r.Post("/{matchID}/reschedule", matchHandler.RescheduleHandler)
			r.Post("/{matchID}/cancel", matchHandler.CancelHandler)
			r.Delete("/{matchID}/events/{eventID}", matchHandler.DeleteEventHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
