package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"
)

// InvitationSuccessResponse is the success response envelope for accept/decline (200).
type InvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ListMyInvitationsSuccessResponse is the success response envelope for GET /me/invitations (200).
type ListMyInvitationsSuccessResponse struct {
	Data  []*domain.Invitation `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// ListEventInvitationsResponse is the data payload for GET /events/{eventID}/invitations (200).
type ListEventInvitationsResponse struct {
	Items      []*domain.Invitation   `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventInvitationsSuccessResponse is the success response envelope for GET /events/{eventID}/invitations (200).
type ListEventInvitationsSuccessResponse struct {
	Data  ListEventInvitationsResponse `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

// ListMine godoc
// @Summary List my invitations
// @Description Returns the authenticated entrant's invitations, newest first. Optional status filter (PENDING, ACCEPTED, DECLINED).
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param status query string false "Invitation status"
// @Success 200 {object} controllers.ListMyInvitationsSuccessResponse "data contains the invitations"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/invitations [get]
func (c *InvitationController) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	status := domain.InvitationStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	list, err := c.Service.ListMyInvitations(r.Context(), userID, status)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "invitation not found")
		return
	}
	if list == nil {
		list = []*domain.Invitation{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// Accept godoc
// @Summary Accept an invitation
// @Description Accepts a pending invitation before it expires. The entrant keeps their selected place.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Success 200 {object} controllers.InvitationSuccessResponse "data contains the accepted invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (no longer pending)"
// @Failure 410 {object} helpers.APIResponse "error.code: gone (expired)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID}/accept [post]
func (c *InvitationController) Accept(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := pathUUID(w, r, "invitationID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.Accept(r.Context(), invitationID, userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "invitation not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// Decline godoc
// @Summary Decline an invitation
// @Description Declines a pending invitation. The place is offered to someone else on the waitlist.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Success 200 {object} controllers.InvitationSuccessResponse "data contains the declined invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (no longer pending)"
// @Failure 410 {object} helpers.APIResponse "error.code: gone (expired)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID}/decline [post]
func (c *InvitationController) Decline(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := pathUUID(w, r, "invitationID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.Decline(r.Context(), invitationID, userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "invitation not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// ListEventInvitations godoc
// @Summary List invitations for an event
// @Description Returns a paginated list of the event's invitations. Only the organizer can list.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventInvitationsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations [get]
func (c *InvitationController) ListEventInvitations(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	list, total, err := c.Service.ListEventInvitations(r.Context(), eventID, userID, params)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	if list == nil {
		list = []*domain.Invitation{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventInvitationsResponse{Items: list, Pagination: meta})
}
