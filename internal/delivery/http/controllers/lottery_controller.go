package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"
)

// LotteryRunResponse is the data payload for the organizer lottery triggers.
// Affected is the number of entrants moved by the run; 0 means nothing was due.
type LotteryRunResponse struct {
	EventID  string `json:"event_id"`
	Action   string `json:"action"`
	Affected int    `json:"affected"`
}

// LotteryRunSuccessResponse is the success response envelope for the lottery triggers (200).
type LotteryRunSuccessResponse struct {
	Data  LotteryRunResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type LotteryController struct {
	Logger  *slog.Logger
	Service domain.LotteryService
}

func NewLotteryController(logger *slog.Logger, svc domain.LotteryService) *LotteryController {
	return &LotteryController{
		Logger:  logger,
		Service: svc,
	}
}

// RunSelection godoc
// @Summary Run the lottery draw
// @Description Draws up to capacity entrants from the waitlist and invites them. Runs once per event, after registration closes and before the event starts. Only the organizer can trigger it.
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.LotteryRunSuccessResponse "data.affected is the number selected"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/selection [post]
func (c *LotteryController) RunSelection(w http.ResponseWriter, r *http.Request) {
	c.run(w, r, "selection", c.Service.RunSelection)
}

// RunReplacement godoc
// @Summary Fill open slots from the waitlist
// @Description Draws replacements for open slots and sends replacement invitations. Only the organizer can trigger it.
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.LotteryRunSuccessResponse "data.affected is the number of replacements"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/replacements [post]
func (c *LotteryController) RunReplacement(w http.ResponseWriter, r *http.Request) {
	c.run(w, r, "replacement", c.Service.RunReplacement)
}

// RunClose godoc
// @Summary Close the lottery
// @Description Marks every entrant still on the waitlist as not selected. Only effective once the invitation deadline (or event start) has passed.
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.LotteryRunSuccessResponse "data.affected is the number marked not selected"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/close [post]
func (c *LotteryController) RunClose(w http.ResponseWriter, r *http.Request) {
	c.run(w, r, "close", c.Service.RunClose)
}

func (c *LotteryController) run(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, eventID, organizerID string) (int, error)) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, err := fn(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LotteryRunResponse{EventID: eventID, Action: action, Affected: n})
}
