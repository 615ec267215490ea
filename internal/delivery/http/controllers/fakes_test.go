package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventease/internal/delivery/http/helpers"
	"eventease/internal/delivery/http/middleware"
	"eventease/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testUserID     = "user-123"
	testEventID    = "6f1d2c3b-4a5e-4f60-8a7b-9c0d1e2f3a4b"
	testInvitation = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
)

// newRequest builds a request with the path values set the way ServeMux would.
func newRequest(method, target, body string, pathValues map[string]string, authed bool) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if authed {
		req = req.WithContext(middleware.SetUserID(req.Context(), testUserID))
	}
	return req
}

// decodeEnvelope decodes the response envelope and, when data is non-nil, unmarshals envelope.Data into it.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) helpers.APIResponse {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw), "response must be valid JSON envelope")
	if data != nil && raw.Error == nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return helpers.APIResponse{Data: data, Error: raw.Error}
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createErr   error
	lastCreated *domain.Event
	event       *domain.Event
	getErr      error
	events      []*domain.Event
	listErr     error
	lastOrgID   string
}

func (f *fakeEventService) CreateEvent(_ context.Context, event *domain.Event) error {
	f.lastCreated = event
	if f.createErr != nil {
		return f.createErr
	}
	event.ID = testEventID
	return nil
}

func (f *fakeEventService) GetEvent(_ context.Context, eventID string) (*domain.Event, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.event, nil
}

func (f *fakeEventService) ListMyEvents(_ context.Context, organizerID string) ([]*domain.Event, error) {
	f.lastOrgID = organizerID
	return f.events, f.listErr
}

// fakeLotteryService implements domain.LotteryService; only the organizer triggers are exercised here.
type fakeLotteryService struct {
	n         int
	err       error
	calls     []string
	lastEvent string
	lastOrg   string
}

func (f *fakeLotteryService) record(op, eventID, organizerID string) (int, error) {
	f.calls = append(f.calls, op)
	f.lastEvent, f.lastOrg = eventID, organizerID
	return f.n, f.err
}

func (f *fakeLotteryService) RunSelection(_ context.Context, eventID, organizerID string) (int, error) {
	return f.record("selection", eventID, organizerID)
}

func (f *fakeLotteryService) RunReplacement(_ context.Context, eventID, organizerID string) (int, error) {
	return f.record("replacement", eventID, organizerID)
}

func (f *fakeLotteryService) RunClose(_ context.Context, eventID, organizerID string) (int, error) {
	return f.record("close", eventID, organizerID)
}

func (f *fakeLotteryService) Select(context.Context, string) (int, error)       { return 0, nil }
func (f *fakeLotteryService) Replace(context.Context, string, int) (int, error) { return 0, nil }
func (f *fakeLotteryService) Reap(context.Context, string) (int, error)         { return 0, nil }
func (f *fakeLotteryService) Close(context.Context, string) (int, error)        { return 0, nil }
func (f *fakeLotteryService) NotifyNotSelected(context.Context, string) (int, error) {
	return 0, nil
}

// fakeWaitlistService implements domain.WaitlistService for handler tests.
type fakeWaitlistService struct {
	entry      *domain.EntrantStatus
	created    bool
	joinErr    error
	leaveErr   error
	mineErr    error
	list       []*domain.EntrantStatus
	total      int
	listErr    error
	lastStatus domain.EntrantState
	lastParams domain.PaginationParams
	lastUser   string
}

func (f *fakeWaitlistService) Join(_ context.Context, eventID, entrantID string) (*domain.EntrantStatus, bool, error) {
	f.lastUser = entrantID
	if f.joinErr != nil {
		return nil, false, f.joinErr
	}
	return f.entry, f.created, nil
}

func (f *fakeWaitlistService) Leave(_ context.Context, eventID, entrantID string) error {
	f.lastUser = entrantID
	return f.leaveErr
}

func (f *fakeWaitlistService) MyEntry(_ context.Context, eventID, entrantID string) (*domain.EntrantStatus, error) {
	f.lastUser = entrantID
	if f.mineErr != nil {
		return nil, f.mineErr
	}
	return f.entry, nil
}

func (f *fakeWaitlistService) ListEntrants(_ context.Context, eventID, organizerID string, status domain.EntrantState, p domain.PaginationParams) ([]*domain.EntrantStatus, int, error) {
	f.lastUser = organizerID
	f.lastStatus = status
	f.lastParams = p
	return f.list, f.total, f.listErr
}

// fakeInvitationService implements domain.InvitationService for handler tests.
type fakeInvitationService struct {
	inv        *domain.Invitation
	respondErr error
	lastAction string
	mine       []*domain.Invitation
	mineErr    error
	lastStatus domain.InvitationStatus
	eventInvs  []*domain.Invitation
	total      int
	eventErr   error
	lastParams domain.PaginationParams
}

func (f *fakeInvitationService) Accept(_ context.Context, invitationID, entrantID string) (*domain.Invitation, error) {
	f.lastAction = "accept"
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	return f.inv, nil
}

func (f *fakeInvitationService) Decline(_ context.Context, invitationID, entrantID string) (*domain.Invitation, error) {
	f.lastAction = "decline"
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	return f.inv, nil
}

func (f *fakeInvitationService) ListMyInvitations(_ context.Context, entrantID string, status domain.InvitationStatus) ([]*domain.Invitation, error) {
	f.lastStatus = status
	return f.mine, f.mineErr
}

func (f *fakeInvitationService) ListEventInvitations(_ context.Context, eventID, organizerID string, p domain.PaginationParams) ([]*domain.Invitation, int, error) {
	f.lastParams = p
	return f.eventInvs, f.total, f.eventErr
}

// fakePreferenceService implements domain.NotificationPreferenceService for handler tests.
type fakePreferenceService struct {
	prefs          *domain.NotificationPreferences
	err            error
	lastInvited    *bool
	lastNotInvited *bool
	updateCalled   bool
}

func (f *fakePreferenceService) GetPreferences(_ context.Context, userID string) (*domain.NotificationPreferences, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prefs, nil
}

func (f *fakePreferenceService) UpdatePreferences(_ context.Context, userID string, notifyInvited, notifyNotInvited *bool) (*domain.NotificationPreferences, error) {
	f.updateCalled = true
	f.lastInvited, f.lastNotInvited = notifyInvited, notifyNotInvited
	if f.err != nil {
		return nil, f.err
	}
	return f.prefs, nil
}
