package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"eventease/internal/domain"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeClock is a settable clock shared by a test and the services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeLocker counts acquisitions; it does not block.
type fakeLocker struct {
	mu       sync.Mutex
	acquired map[string]int
	err      error
}

func newFakeLocker() *fakeLocker { return &fakeLocker{acquired: make(map[string]int)} }

func (l *fakeLocker) Acquire(ctx context.Context, eventID string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.acquired[eventID]++
	l.mu.Unlock()
	return func() {}, nil
}

// fakeStore is an in-memory LotteryStore. A transaction holds the store mutex for its
// whole duration and restores a snapshot when fn fails.
type fakeStore struct {
	mu            sync.Mutex
	events        map[string]*domain.Event
	entrants      map[string]map[string]*domain.EntrantStatus
	invitations   map[string]*domain.Invitation
	notifications []*domain.NotificationRequest
	prefs         map[string]*domain.NotificationPreferences

	failures []error // returned by successive WithinTx calls before fn runs
	txCount  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      make(map[string]*domain.Event),
		entrants:    make(map[string]map[string]*domain.EntrantStatus),
		invitations: make(map[string]*domain.Invitation),
		prefs:       make(map[string]*domain.NotificationPreferences),
	}
}

type fakeSnapshot struct {
	events        map[string]domain.Event
	entrants      map[string]map[string]domain.EntrantStatus
	invitations   map[string]domain.Invitation
	notifications int
}

func (f *fakeStore) snapshot() fakeSnapshot {
	s := fakeSnapshot{
		events:        make(map[string]domain.Event, len(f.events)),
		entrants:      make(map[string]map[string]domain.EntrantStatus, len(f.entrants)),
		invitations:   make(map[string]domain.Invitation, len(f.invitations)),
		notifications: len(f.notifications),
	}
	for id, e := range f.events {
		s.events[id] = *e
	}
	for ev, m := range f.entrants {
		cp := make(map[string]domain.EntrantStatus, len(m))
		for id, st := range m {
			cp[id] = *st
		}
		s.entrants[ev] = cp
	}
	for id, inv := range f.invitations {
		s.invitations[id] = *inv
	}
	return s
}

func (f *fakeStore) restore(s fakeSnapshot) {
	f.events = make(map[string]*domain.Event, len(s.events))
	for id, e := range s.events {
		e := e
		f.events[id] = &e
	}
	f.entrants = make(map[string]map[string]*domain.EntrantStatus, len(s.entrants))
	for ev, m := range s.entrants {
		cp := make(map[string]*domain.EntrantStatus, len(m))
		for id, st := range m {
			st := st
			cp[id] = &st
		}
		f.entrants[ev] = cp
	}
	f.invitations = make(map[string]*domain.Invitation, len(s.invitations))
	for id, inv := range s.invitations {
		inv := inv
		f.invitations[id] = &inv
	}
	f.notifications = f.notifications[:s.notifications]
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.LotteryTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	snap := f.snapshot()
	if err := fn(ctx, &fakeTx{f: f}); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

// Test helpers. They take the store lock themselves.

func (f *fakeStore) addEvent(e *domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = e
}

func (f *fakeStore) event(id string) domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.events[id]
}

func (f *fakeStore) addEntrants(eventID string, state domain.EntrantState, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.entrants[eventID]
	if m == nil {
		m = make(map[string]*domain.EntrantStatus)
		f.entrants[eventID] = m
	}
	for i, id := range ids {
		joined := baseTime.Add(-48*time.Hour + time.Duration(len(m)+i)*time.Minute)
		m[id] = &domain.EntrantStatus{EventID: eventID, EntrantID: id, Status: state, JoinedAt: joined, UpdatedAt: joined}
	}
	if state == domain.StatusWaitlisted {
		f.events[eventID].WaitlistCount += len(ids)
	}
}

func (f *fakeStore) idsIn(eventID string, state domain.EntrantState) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idsInLocked(eventID, state)
}

func (f *fakeStore) idsInLocked(eventID string, state domain.EntrantState) []string {
	var rows []*domain.EntrantStatus
	for _, st := range f.entrants[eventID] {
		if st.Status == state {
			rows = append(rows, st)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].JoinedAt.Equal(rows[j].JoinedAt) {
			return rows[i].JoinedAt.Before(rows[j].JoinedAt)
		}
		return rows[i].EntrantID < rows[j].EntrantID
	})
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EntrantID)
	}
	return ids
}

func (f *fakeStore) invitationsFor(eventID string, status domain.InvitationStatus) []*domain.Invitation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Invitation
	for _, inv := range f.invitations {
		if inv.EventID == eventID && (status == "" || inv.Status == status) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) addInvitation(inv *domain.Invitation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invitations[inv.ID] = inv
}

func (f *fakeStore) notificationsOf(group domain.NotificationGroup) []*domain.NotificationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.NotificationRequest
	for _, n := range f.notifications {
		if n.GroupType == group {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeStore) setPrefs(p *domain.NotificationPreferences) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[p.UserID] = p
}

func (f *fakeStore) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

func (f *fakeStore) transactions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txCount
}

// fakeTx runs with fakeStore.mu held.
type fakeTx struct {
	f *fakeStore
}

func (t *fakeTx) LockEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	e, ok := t.f.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (t *fakeTx) GetEntrant(ctx context.Context, eventID, entrantID string) (*domain.EntrantStatus, error) {
	st, ok := t.f.entrants[eventID][entrantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (t *fakeTx) InsertEntrant(ctx context.Context, s *domain.EntrantStatus) error {
	m := t.f.entrants[s.EventID]
	if m == nil {
		m = make(map[string]*domain.EntrantStatus)
		t.f.entrants[s.EventID] = m
	}
	if _, ok := m[s.EntrantID]; ok {
		return domain.ErrAlreadyEntered
	}
	cp := *s
	m[s.EntrantID] = &cp
	return nil
}

func (t *fakeTx) DeleteEntrant(ctx context.Context, eventID, entrantID string, state domain.EntrantState) (bool, error) {
	st, ok := t.f.entrants[eventID][entrantID]
	if !ok || st.Status != state {
		return false, nil
	}
	delete(t.f.entrants[eventID], entrantID)
	return true, nil
}

func (t *fakeTx) ListEntrantIDs(ctx context.Context, eventID string, state domain.EntrantState) ([]string, error) {
	return t.f.idsInLocked(eventID, state), nil
}

func (t *fakeTx) CountEntrants(ctx context.Context, eventID string, state domain.EntrantState) (int, error) {
	return len(t.f.idsInLocked(eventID, state)), nil
}

func (t *fakeTx) TransitionEntrants(ctx context.Context, eventID string, entrantIDs []string, from, to domain.EntrantState, at time.Time) ([]string, error) {
	moved := make([]string, 0, len(entrantIDs))
	for _, id := range entrantIDs {
		st, ok := t.f.entrants[eventID][id]
		if !ok || st.Status != from {
			continue
		}
		st.Status = to
		st.UpdatedAt = at
		if to == domain.StatusCancelled {
			at := at
			st.CancelledAt = &at
		}
		moved = append(moved, id)
	}
	return moved, nil
}

func (t *fakeTx) AdjustWaitlistCount(ctx context.Context, eventID string, delta int) error {
	e := t.f.events[eventID]
	e.WaitlistCount = max(0, e.WaitlistCount+delta)
	return nil
}

func (t *fakeTx) MarkSelectionProcessed(ctx context.Context, eventID string) error {
	t.f.events[eventID].SelectionProcessed = true
	return nil
}

func (t *fakeTx) MarkNonSelectedProcessed(ctx context.Context, eventID string) error {
	e := t.f.events[eventID]
	e.NonSelectedProcessed = true
	e.WaitlistCount = 0
	return nil
}

func (t *fakeTx) ClaimFlag(ctx context.Context, eventID string, flag domain.EventFlag) (bool, error) {
	e := t.f.events[eventID]
	var field *bool
	switch flag {
	case domain.FlagSelectionNotificationSent:
		field = &e.SelectionNotificationSent
	case domain.FlagDeadlineNotificationSent:
		field = &e.DeadlineNotificationSent
	case domain.FlagSorryNotificationSent:
		field = &e.SorryNotificationSent
	default:
		return false, fmt.Errorf("unknown flag %v", flag)
	}
	if *field {
		return false, nil
	}
	*field = true
	return true, nil
}

func (t *fakeTx) GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	inv, ok := t.f.invitations[invitationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (t *fakeTx) PendingInvitees(ctx context.Context, eventID string, entrantIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, inv := range t.f.invitations {
		if inv.EventID == eventID && inv.Status == domain.InvitationPending && slices.Contains(entrantIDs, inv.EntrantID) {
			out[inv.EntrantID] = true
		}
	}
	return out, nil
}

func (t *fakeTx) CreateInvitations(ctx context.Context, invs []*domain.Invitation) error {
	for _, inv := range invs {
		for _, existing := range t.f.invitations {
			if existing.EventID == inv.EventID && existing.EntrantID == inv.EntrantID && existing.Status == domain.InvitationPending {
				return domain.ErrDuplicateInvitation
			}
		}
		cp := *inv
		t.f.invitations[inv.ID] = &cp
	}
	return nil
}

func (t *fakeTx) RespondToInvitation(ctx context.Context, invitationID string, status domain.InvitationStatus, at time.Time) (bool, error) {
	inv, ok := t.f.invitations[invitationID]
	if !ok || inv.Status != domain.InvitationPending {
		return false, nil
	}
	inv.Status = status
	inv.RespondedAt = &at
	return true, nil
}

func (t *fakeTx) ExpireInvitations(ctx context.Context, eventID string, now time.Time, deadlinePassed bool) ([]*domain.Invitation, error) {
	var out []*domain.Invitation
	for _, inv := range t.f.invitations {
		if inv.EventID != eventID || inv.Status != domain.InvitationPending {
			continue
		}
		if inv.ExpiresAt.After(now) && !deadlinePassed {
			continue
		}
		inv.Status = domain.InvitationDeclined
		at := now
		inv.RespondedAt = &at
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) FilterRecipients(ctx context.Context, userIDs []string, group domain.NotificationGroup) ([]string, error) {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := t.f.prefs[id]; ok && !p.Allows(group) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (t *fakeTx) CreateNotificationRequest(ctx context.Context, req *domain.NotificationRequest) error {
	t.f.notifications = append(t.f.notifications, req)
	return nil
}

// fakeEventRepo reads events out of a fakeStore.
type fakeEventRepo struct {
	s       *fakeStore
	nextID  int
	err     error // if set, Create returns this error
	created []*domain.Event
}

func (r *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if r.err != nil {
		return r.err
	}
	r.nextID++
	e.ID = fmt.Sprintf("ev-%d", r.nextID)
	r.created = append(r.created, e)
	r.s.addEvent(e)
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEventRepo) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.s.events {
		if e.OrganizerID == organizerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEventRepo) ListDueForSelection(ctx context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

func (r *fakeEventRepo) ListWithExpiredInvitations(ctx context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

func (r *fakeEventRepo) ListDueForClose(ctx context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, e := range r.s.events {
		closes := e.ClosesAt()
		if e.SelectionProcessed && !e.NonSelectedProcessed && closes != nil && !now.Before(*closes) {
			ids = append(ids, e.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeEventRepo) ListDueForSorry(ctx context.Context, now time.Time, window time.Duration) ([]string, error) {
	return nil, nil
}

// fakeInvitationRepo reads invitations out of a fakeStore.
type fakeInvitationRepo struct {
	s *fakeStore
}

func (r *fakeInvitationRepo) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvitationRepo) ListByEntrant(ctx context.Context, entrantID string, status domain.InvitationStatus) ([]*domain.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Invitation{}
	for _, inv := range r.s.invitations {
		if inv.EntrantID == entrantID && (status == "" || inv.Status == status) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) ListByEvent(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.Invitation, int, error) {
	all := r.s.invitationsFor(eventID, "")
	return all, len(all), nil
}

// fakeEntrantRepo reads entrant statuses out of a fakeStore.
type fakeEntrantRepo struct {
	s *fakeStore
}

func (r *fakeEntrantRepo) GetByEventAndEntrant(ctx context.Context, eventID, entrantID string) (*domain.EntrantStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.entrants[eventID][entrantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *fakeEntrantRepo) ListByEvent(ctx context.Context, eventID string, status domain.EntrantState, p domain.PaginationParams) ([]*domain.EntrantStatus, int, error) {
	ids := r.s.idsIn(eventID, status)
	out := make([]*domain.EntrantStatus, 0, len(ids))
	for _, id := range ids {
		st, _ := r.GetByEventAndEntrant(ctx, eventID, id)
		out = append(out, st)
	}
	return out, len(out), nil
}

// fakeEmailService records summaries.
type fakeEmailService struct {
	mu   sync.Mutex
	sent []*domain.SelectionSummaryEmailData
	err  error
}

func (f *fakeEmailService) SendSelectionSummary(ctx context.Context, data *domain.SelectionSummaryEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, data)
	return nil
}

// fakeTrigger records replacement requests instead of running them.
type fakeTrigger struct {
	mu    sync.Mutex
	calls []triggerCall
}

type triggerCall struct {
	eventID   string
	cancelled int
}

func (f *fakeTrigger) Trigger(ctx context.Context, eventID string, cancelled int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, triggerCall{eventID: eventID, cancelled: cancelled})
}

// lotteryEvent returns an event whose registration closed an hour before baseTime,
// with the invitation deadline 10 days and the start 20 days after it.
func lotteryEvent(id string, capacity int) *domain.Event {
	deadline := baseTime.Add(10 * 24 * time.Hour)
	starts := baseTime.Add(20 * 24 * time.Hour)
	return &domain.Event{
		ID:                 id,
		OrganizerID:        "org-1",
		Title:              "Pottery class",
		Capacity:           capacity,
		RegistrationStart:  baseTime.Add(-10 * 24 * time.Hour),
		RegistrationEnd:    baseTime.Add(-time.Hour),
		InvitationDeadline: &deadline,
		StartsAt:           &starts,
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

type lotteryFixture struct {
	store   *fakeStore
	clock   *fakeClock
	locker  *fakeLocker
	email   *fakeEmailService
	events  *fakeEventRepo
	lottery domain.LotteryService
}

func newLotteryFixture(t *testing.T) *lotteryFixture {
	t.Helper()
	store := newFakeStore()
	fx := &lotteryFixture{
		store:  store,
		clock:  newFakeClock(baseTime),
		locker: newFakeLocker(),
		email:  &fakeEmailService{},
		events: &fakeEventRepo{s: store},
	}
	var idMu sync.Mutex
	nextID := 0
	fx.lottery = NewLotteryService(store, fx.events, fx.locker, fx.email, discardLogger(), 5*time.Second,
		WithClock(fx.clock.Now),
		WithDrawer(NewDrawer(1, 2)),
		WithRetryPolicy(fastRetry()),
		WithIDGenerator(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			nextID++
			return fmt.Sprintf("id-%03d", nextID)
		}),
	)
	return fx
}

func (fx *lotteryFixture) invitationService(replacer domain.ReplacementTrigger) domain.InvitationService {
	svc := NewInvitationService(fx.store, &fakeInvitationRepo{s: fx.store}, fx.events, fx.locker, replacer, discardLogger(), 5*time.Second).(*invitationService)
	svc.now = fx.clock.Now
	svc.retry = fastRetry()
	return svc
}

func (fx *lotteryFixture) waitlistService() domain.WaitlistService {
	svc := NewWaitlistService(fx.store, fx.events, &fakeEntrantRepo{s: fx.store}, discardLogger(), 5*time.Second).(*waitlistService)
	svc.now = fx.clock.Now
	svc.retry = fastRetry()
	return svc
}

var errTransient = fmt.Errorf("%w: connection reset by peer", domain.ErrTransient)
