package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"
)

// WaitlistEntrySuccessResponse is the success response envelope for POST /events/{eventID}/waitlist.
type WaitlistEntrySuccessResponse struct {
	Data  *domain.EntrantStatus `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// LeaveWaitlistResponse is the data payload for DELETE /events/{eventID}/waitlist (200).
type LeaveWaitlistResponse struct {
	Status string `json:"status"`
}

// LeaveWaitlistSuccessResponse is the success response envelope for DELETE /events/{eventID}/waitlist (200).
type LeaveWaitlistSuccessResponse struct {
	Data  LeaveWaitlistResponse `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListEntrantsResponse is the data payload for GET /events/{eventID}/entrants (200).
type ListEntrantsResponse struct {
	Items      []*domain.EntrantStatus `json:"items"`
	Pagination helpers.PaginationMeta  `json:"pagination"`
}

// ListEntrantsSuccessResponse is the success response envelope for GET /events/{eventID}/entrants (200).
type ListEntrantsSuccessResponse struct {
	Data  ListEntrantsResponse `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type WaitlistController struct {
	Logger  *slog.Logger
	Service domain.WaitlistService
}

func NewWaitlistController(logger *slog.Logger, svc domain.WaitlistService) *WaitlistController {
	return &WaitlistController{
		Logger:  logger,
		Service: svc,
	}
}

// Join godoc
// @Summary Join an event waitlist
// @Description Adds the authenticated user to the waitlist while registration is open. Joining twice returns the existing entry with 200.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.WaitlistEntrySuccessResponse "data contains the new entry"
// @Success 200 {object} controllers.WaitlistEntrySuccessResponse "already on the waitlist"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (registration closed or already entered)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist [post]
func (c *WaitlistController) Join(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	entry, created, err := c.Service.Join(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, entry)
}

// Leave godoc
// @Summary Leave an event waitlist
// @Description Removes the authenticated user from the waitlist. Only possible while still waitlisted.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.LeaveWaitlistSuccessResponse "data contains status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (not on the waitlist)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist [delete]
func (c *WaitlistController) Leave(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.Leave(r.Context(), eventID, userID); err != nil {
		writeServiceError(w, r, c.Logger, err, "not on the waitlist")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LeaveWaitlistResponse{Status: "left"})
}

// MyEntry godoc
// @Summary Get my entry for an event
// @Description Returns the authenticated user's lottery status for the event (WAITLISTED, SELECTED, CANCELLED, NOT_SELECTED).
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.WaitlistEntrySuccessResponse "data contains the entry"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (never joined)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist [get]
func (c *WaitlistController) MyEntry(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	entry, err := c.Service.MyEntry(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "not entered in this event")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, entry)
}

// ListEntrants godoc
// @Summary List entrants of an event
// @Description Returns a paginated list of entrants. Optional status filter (WAITLISTED, SELECTED, CANCELLED, NOT_SELECTED). Only the organizer can list.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "Entrant status"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEntrantsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/entrants [get]
func (c *WaitlistController) ListEntrants(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	status := domain.EntrantState(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	params := helpers.ParsePagination(r)
	list, total, err := c.Service.ListEntrants(r.Context(), eventID, userID, status, params)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	if list == nil {
		list = []*domain.EntrantStatus{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEntrantsResponse{Items: list, Pagination: meta})
}
