package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventease/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationController_Respond(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	answered := issued.Add(time.Hour)

	tests := []struct {
		name       string
		action     string
		id         string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "accept", action: "accept", id: testInvitation, wantStatus: http.StatusOK},
		{name: "decline", action: "decline", id: testInvitation, wantStatus: http.StatusOK},
		{name: "invalid id", action: "accept", id: "inv-1", wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "someone else's", action: "accept", id: testInvitation, err: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "already answered", action: "decline", id: testInvitation, err: domain.ErrInvitationNotPending, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "expired", action: "accept", id: testInvitation, err: domain.ErrInvitationExpired, wantStatus: http.StatusGone, wantCode: "gone"},
		{name: "wrapped store failure", action: "decline", id: testInvitation, err: fmt.Errorf("decline invitation: %w", errors.New("conn reset")), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := domain.InvitationAccepted
			if tt.action == "decline" {
				status = domain.InvitationDeclined
			}
			fake := &fakeInvitationService{
				inv:        &domain.Invitation{ID: tt.id, EventID: testEventID, EntrantID: testUserID, Status: status, IssuedAt: issued, ExpiresAt: issued.Add(domain.InitialResponseWindow), RespondedAt: &answered},
				respondErr: tt.err,
			}
			ctrl := NewInvitationController(testLogger, fake)
			req := newRequest(http.MethodPost, "/invitations/"+tt.id+"/"+tt.action, "", map[string]string{"invitationID": tt.id}, true)
			rr := httptest.NewRecorder()

			if tt.action == "accept" {
				ctrl.Accept(rr, req)
			} else {
				ctrl.Decline(rr, req)
			}

			require.Equal(t, tt.wantStatus, rr.Code)
			var inv domain.Invitation
			env := decodeEnvelope(t, rr, &inv)
			if tt.wantCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
				return
			}
			assert.Equal(t, tt.action, fake.lastAction)
			assert.Equal(t, status, inv.Status)
			require.NotNil(t, inv.RespondedAt)
		})
	}
}

func TestInvitationController_ListMine(t *testing.T) {
	t.Run("status is normalised", func(t *testing.T) {
		fake := &fakeInvitationService{mine: []*domain.Invitation{{ID: testInvitation, Status: domain.InvitationPending}}}
		ctrl := NewInvitationController(testLogger, fake)
		rr := httptest.NewRecorder()

		ctrl.ListMine(rr, newRequest(http.MethodGet, "/me/invitations?status=pending", "", nil, true))

		require.Equal(t, http.StatusOK, rr.Code)
		var invs []*domain.Invitation
		decodeEnvelope(t, rr, &invs)
		require.Len(t, invs, 1)
		assert.Equal(t, domain.InvitationPending, fake.lastStatus)
	})

	t.Run("unknown status", func(t *testing.T) {
		fake := &fakeInvitationService{mineErr: fmt.Errorf("%w: unknown invitation status %q", domain.ErrInvalidInput, "MAYBE")}
		ctrl := NewInvitationController(testLogger, fake)
		rr := httptest.NewRecorder()

		ctrl.ListMine(rr, newRequest(http.MethodGet, "/me/invitations?status=maybe", "", nil, true))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		ctrl := NewInvitationController(testLogger, &fakeInvitationService{})
		rr := httptest.NewRecorder()

		ctrl.ListMine(rr, newRequest(http.MethodGet, "/me/invitations", "", nil, false))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestInvitationController_ListEventInvitations(t *testing.T) {
	tests := []struct {
		name       string
		fake       *fakeInvitationService
		wantStatus int
		wantTotal  int
	}{
		{name: "paginated", fake: &fakeInvitationService{eventInvs: []*domain.Invitation{{ID: testInvitation}}, total: 1}, wantStatus: http.StatusOK, wantTotal: 1},
		{name: "not organizer", fake: &fakeInvitationService{eventErr: domain.ErrForbidden}, wantStatus: http.StatusForbidden},
		{name: "unknown event", fake: &fakeInvitationService{eventErr: domain.ErrNotFound}, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewInvitationController(testLogger, tt.fake)
			req := newRequest(http.MethodGet, "/events/"+testEventID+"/invitations?page_size=5", "", map[string]string{"eventID": testEventID}, true)
			rr := httptest.NewRecorder()

			ctrl.ListEventInvitations(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp ListEventInvitationsResponse
			decodeEnvelope(t, rr, &resp)
			assert.Equal(t, tt.wantTotal, resp.Pagination.Total)
			assert.Equal(t, 5, tt.fake.lastParams.PageSize)
		})
	}
}
