package controllers

import (
	"log/slog"
	"net/http"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"
)

// UpdatePreferencesRequest is the request body for PUT /me/notification-preferences.
// Omitted fields are unchanged.
type UpdatePreferencesRequest struct {
	NotifyInvited    *bool `json:"notify_invited"`
	NotifyNotInvited *bool `json:"notify_not_invited"`
}

// Validate implements Validator.
func (u UpdatePreferencesRequest) Validate() []string {
	if u.NotifyInvited == nil && u.NotifyNotInvited == nil {
		return []string{"at least one of notify_invited or notify_not_invited is required"}
	}
	return nil
}

// PreferencesSuccessResponse is the success response envelope for the notification preference endpoints (200).
type PreferencesSuccessResponse struct {
	Data  *domain.NotificationPreferences `json:"data"`
	Error *helpers.APIError               `json:"error"`
}

type PreferenceController struct {
	Logger  *slog.Logger
	Service domain.NotificationPreferenceService
}

func NewPreferenceController(logger *slog.Logger, svc domain.NotificationPreferenceService) *PreferenceController {
	return &PreferenceController{
		Logger:  logger,
		Service: svc,
	}
}

// Get godoc
// @Summary Get my notification preferences
// @Description Users without saved preferences receive every notification.
// @Tags preferences
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.PreferencesSuccessResponse "data contains the preferences"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/notification-preferences [get]
func (c *PreferenceController) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := c.Service.GetPreferences(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "preferences not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}

// Update godoc
// @Summary Update my notification preferences
// @Description notify_invited covers selection and replacement messages, notify_not_invited covers deadline and not-selected messages.
// @Tags preferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdatePreferencesRequest true "Fields to update"
// @Success 200 {object} controllers.PreferencesSuccessResponse "data contains the updated preferences"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/notification-preferences [put]
func (c *PreferenceController) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := c.Service.UpdatePreferences(r.Context(), userID, req.NotifyInvited, req.NotifyNotInvited)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "preferences not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}
