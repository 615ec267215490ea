package http

import (
	"log/slog"
	"net/http"

	"eventease/internal/delivery/http/controllers"
	"eventease/internal/delivery/http/helpers"
	"eventease/internal/delivery/http/middleware"
	"eventease/internal/domain"

	_ "eventease/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Events      *controllers.EventController
	Lottery     *controllers.LotteryController
	Waitlist    *controllers.WaitlistController
	Invitations *controllers.InvitationController
	Preferences *controllers.PreferenceController
}

// NewRouter initializes the HTTP router with all application routes. Every API route
// requires a Bearer token; the whole mux is wrapped with request logging and CORS.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger, corsOrigins []string) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", auth(c.Events.GetEvent))
	mux.HandleFunc("GET /organizer/events", auth(c.Events.ListMyEvents))

	// Lottery (organizer)
	mux.HandleFunc("POST /events/{eventID}/selection", auth(c.Lottery.RunSelection))
	mux.HandleFunc("POST /events/{eventID}/replacements", auth(c.Lottery.RunReplacement))
	mux.HandleFunc("POST /events/{eventID}/close", auth(c.Lottery.RunClose))
	mux.HandleFunc("GET /events/{eventID}/entrants", auth(c.Waitlist.ListEntrants))
	mux.HandleFunc("GET /events/{eventID}/invitations", auth(c.Invitations.ListEventInvitations))

	// Entrants
	mux.HandleFunc("GET /events/{eventID}/waitlist", auth(c.Waitlist.MyEntry))
	mux.HandleFunc("POST /events/{eventID}/waitlist", auth(c.Waitlist.Join))
	mux.HandleFunc("DELETE /events/{eventID}/waitlist", auth(c.Waitlist.Leave))
	mux.HandleFunc("GET /me/invitations", auth(c.Invitations.ListMine))
	mux.HandleFunc("POST /invitations/{invitationID}/accept", auth(c.Invitations.Accept))
	mux.HandleFunc("POST /invitations/{invitationID}/decline", auth(c.Invitations.Decline))
	mux.HandleFunc("GET /me/notification-preferences", auth(c.Preferences.Get))
	mux.HandleFunc("PUT /me/notification-preferences", auth(c.Preferences.Update))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return middleware.CORS(corsOrigins, middleware.LoggingMiddleware(logger, mux))
}
