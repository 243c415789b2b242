package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/auth"
	"github.com/sakif/innovation-records/internal/authz"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
)

// =========================================================================
// IN-MEMORY STORE
// =========================================================================
//
// memStore backs every fake repository below so that, like the real SQLite
// store, creating an innovation is visible to the roster fake and deleting
// it clears its children. One mutex guards everything, which is what the
// single-connection SQLite pool gives us in production.

type memStore struct {
	mu          sync.Mutex
	users       map[string]model.User
	sessions    map[string]model.Session
	staff       map[string]model.Staff
	innovations []model.Innovation
	members     []model.TeamMember
	comps       []model.Competition
	nextID      int
	seq         int64

	// clock is the CreatedAt handed to the next innovation; it advances by
	// step after each one. step 0 makes records share a timestamp.
	clock time.Time
	step  time.Duration

	// failWith makes every call return this error.
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]model.User),
		sessions: make(map[string]model.Session),
		staff:    make(map[string]model.Staff),
		clock:    time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		step:     time.Second,
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) Users() *fakeUsers             { return &fakeUsers{m} }
func (m *memStore) Sessions() *fakeSessions       { return &fakeSessions{m} }
func (m *memStore) Staff() *fakeStaff             { return &fakeStaff{m} }
func (m *memStore) Innovations() *fakeInnovations { return &fakeInnovations{m} }
func (m *memStore) Teams() *fakeTeams             { return &fakeTeams{m} }
func (m *memStore) Competitions() *fakeComps      { return &fakeComps{m} }

func (m *memStore) addStaff(email, name, dept string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff[email] = model.Staff{Email: email, Name: name, Dept: dept, Active: active}
}

func (m *memStore) roster(innovationID string) []model.TeamMember {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TeamMember
	for _, tm := range m.members {
		if tm.InnovationID == innovationID {
			out = append(out, tm)
		}
	}
	return out
}

// --- users ---

type fakeUsers struct{ m *memStore }

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Upsert(_ context.Context, email string, promote bool) (*model.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return nil, f.m.failWith
	}
	u, ok := f.m.users[email]
	if !ok {
		u = model.User{Email: email, Role: model.RoleUser, CreatedAt: time.Now()}
	}
	if promote {
		u.Role = model.RoleAdmin
	}
	f.m.users[email] = u
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u, ok := f.m.users[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return &u, nil
}

// --- sessions ---

type fakeSessions struct{ m *memStore }

var _ repository.SessionRepository = (*fakeSessions)(nil)

func (f *fakeSessions) Create(_ context.Context, digest string, s *model.Session) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return f.m.failWith
	}
	if _, ok := f.m.sessions[digest]; ok {
		return apperror.Conflict("session", "(redacted)")
	}
	stored := *s
	stored.Token = ""
	f.m.sessions[digest] = stored
	return nil
}

func (f *fakeSessions) GetByDigest(_ context.Context, digest string) (*model.Session, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return nil, f.m.failWith
	}
	s, ok := f.m.sessions[digest]
	if !ok {
		return nil, apperror.NotFound("session", "(redacted)")
	}
	return &s, nil
}

func (f *fakeSessions) Touch(_ context.Context, digest string, at time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if s, ok := f.m.sessions[digest]; ok {
		s.LastSeenAt = at
		f.m.sessions[digest] = s
	}
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, digest string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	delete(f.m.sessions, digest)
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var n int64
	for d, s := range f.m.sessions {
		if s.Expired(now) {
			delete(f.m.sessions, d)
			n++
		}
	}
	return n, nil
}

// --- staff ---

type fakeStaff struct{ m *memStore }

var _ repository.StaffRepository = (*fakeStaff)(nil)

func (f *fakeStaff) Get(_ context.Context, email string) (*model.Staff, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return nil, f.m.failWith
	}
	s, ok := f.m.staff[email]
	if !ok {
		return nil, apperror.NotFound("staff", email)
	}
	return &s, nil
}

func (f *fakeStaff) Search(_ context.Context, query string, limit int) ([]model.Staff, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	q := strings.ToLower(query)
	out := []model.Staff{}
	for _, s := range f.m.staff {
		if s.Active && (strings.Contains(s.Email, q) || strings.Contains(strings.ToLower(s.Name), q)) {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStaff) List(_ context.Context, _ repository.ListOptions) ([]model.Staff, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	out := []model.Staff{}
	for _, s := range f.m.staff {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStaff) Upsert(_ context.Context, s *model.Staff) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.staff[s.Email] = *s
	return nil
}

// --- innovations ---

type fakeInnovations struct{ m *memStore }

var _ repository.InnovationRepository = (*fakeInnovations)(nil)

func (f *fakeInnovations) CreateWithLeader(_ context.Context, inv *model.Innovation, leader *model.TeamMember) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return f.m.failWith
	}
	f.m.seq++
	inv.ID = f.m.id("inv")
	inv.Seq = f.m.seq
	inv.CreatedAt = f.m.clock
	inv.UpdatedAt = f.m.clock
	f.m.clock = f.m.clock.Add(f.m.step)

	leader.ID = f.m.id("tm")
	leader.InnovationID = inv.ID
	leader.AddedAt = inv.CreatedAt

	f.m.innovations = append(f.m.innovations, *inv)
	f.m.members = append(f.m.members, *leader)
	return nil
}

func (f *fakeInnovations) GetByID(_ context.Context, id string) (*model.Innovation, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return nil, f.m.failWith
	}
	for _, inv := range f.m.innovations {
		if inv.ID == id {
			return &inv, nil
		}
	}
	return nil, apperror.NotFound("innovation", id)
}

func (f *fakeInnovations) ListByOwner(_ context.Context, email string) ([]model.Innovation, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return nil, f.m.failWith
	}
	out := []model.Innovation{}
	for _, inv := range f.m.innovations {
		if inv.OwnerEmail == email {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInnovations) ListByMember(_ context.Context, email string) ([]model.Innovation, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return nil, f.m.failWith
	}
	out := []model.Innovation{}
	for _, inv := range f.m.innovations {
		for _, tm := range f.m.members {
			if tm.InnovationID == inv.ID && tm.MemberEmail == email {
				out = append(out, inv)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeInnovations) Update(_ context.Context, inv *model.Innovation) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for i := range f.m.innovations {
		if f.m.innovations[i].ID == inv.ID {
			inv.OwnerEmail = f.m.innovations[i].OwnerEmail
			f.m.innovations[i] = *inv
			return nil
		}
	}
	return apperror.NotFound("innovation", inv.ID)
}

func (f *fakeInnovations) Delete(_ context.Context, id string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	found := false
	invs := f.m.innovations[:0]
	for _, inv := range f.m.innovations {
		if inv.ID == id {
			found = true
			continue
		}
		invs = append(invs, inv)
	}
	if !found {
		return apperror.NotFound("innovation", id)
	}
	f.m.innovations = invs

	members := f.m.members[:0]
	for _, tm := range f.m.members {
		if tm.InnovationID != id {
			members = append(members, tm)
		}
	}
	f.m.members = members

	comps := f.m.comps[:0]
	for _, c := range f.m.comps {
		if c.InnovationID != id {
			comps = append(comps, c)
		}
	}
	f.m.comps = comps
	return nil
}

// --- teams ---

type fakeTeams struct{ m *memStore }

var _ repository.TeamRepository = (*fakeTeams)(nil)

func (f *fakeTeams) AddMember(_ context.Context, tm *model.TeamMember) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.failWith != nil {
		return f.m.failWith
	}
	for _, existing := range f.m.members {
		if existing.InnovationID == tm.InnovationID && existing.MemberEmail == tm.MemberEmail {
			return apperror.Conflict("team member", tm.MemberEmail)
		}
	}
	tm.ID = f.m.id("tm")
	tm.AddedAt = time.Now().UTC()
	f.m.members = append(f.m.members, *tm)
	return nil
}

func (f *fakeTeams) GetMember(_ context.Context, innovationID, email string) (*model.TeamMember, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, tm := range f.m.members {
		if tm.InnovationID == innovationID && tm.MemberEmail == email {
			return &tm, nil
		}
	}
	return nil, apperror.NotFound("team member", email)
}

func (f *fakeTeams) GetMemberByID(_ context.Context, innovationID, entryID string) (*model.TeamMember, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, tm := range f.m.members {
		if tm.InnovationID == innovationID && tm.ID == entryID {
			return &tm, nil
		}
	}
	return nil, apperror.NotFound("team member", entryID)
}

func (f *fakeTeams) ListMembers(_ context.Context, innovationID string) ([]model.TeamMember, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	out := []model.TeamMember{}
	for _, tm := range f.m.members {
		if tm.InnovationID == innovationID {
			out = append(out, tm)
		}
	}
	return out, nil
}

func (f *fakeTeams) RemoveMember(_ context.Context, innovationID, email string) (bool, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	idx := -1
	leaders := 0
	for i, tm := range f.m.members {
		if tm.InnovationID != innovationID {
			continue
		}
		if tm.Role.Leads() {
			leaders++
		}
		if tm.MemberEmail == email {
			idx = i
		}
	}
	if idx < 0 {
		return false, nil
	}
	if f.m.members[idx].Role.Leads() && leaders <= 1 {
		return false, apperror.LastLeader(innovationID)
	}
	f.m.members = append(f.m.members[:idx], f.m.members[idx+1:]...)
	return true, nil
}

// --- competitions ---

type fakeComps struct{ m *memStore }

var _ repository.CompetitionRepository = (*fakeComps)(nil)

func (f *fakeComps) Create(_ context.Context, c *model.Competition) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	c.ID = f.m.id("comp")
	c.CreatedAt = time.Now().UTC()
	f.m.comps = append(f.m.comps, *c)
	return nil
}

func (f *fakeComps) GetByID(_ context.Context, innovationID, id string) (*model.Competition, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, c := range f.m.comps {
		if c.InnovationID == innovationID && c.ID == id {
			return &c, nil
		}
	}
	return nil, apperror.NotFound("competition", id)
}

func (f *fakeComps) ListByInnovation(ctx context.Context, innovationID string) ([]model.Competition, error) {
	return f.ListByInnovations(ctx, []string{innovationID})
}

func (f *fakeComps) ListByInnovations(_ context.Context, ids []string) ([]model.Competition, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []model.Competition{}
	for i := len(f.m.comps) - 1; i >= 0; i-- {
		if want[f.m.comps[i].InnovationID] {
			out = append(out, f.m.comps[i])
		}
	}
	return out, nil
}

func (f *fakeComps) Delete(_ context.Context, innovationID, id string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for i, c := range f.m.comps {
		if c.InnovationID == innovationID && c.ID == id {
			f.m.comps = append(f.m.comps[:i], f.m.comps[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("competition", id)
}

// =========================================================================
// FAKE VERIFIER
// =========================================================================

// fakeVerifier accepts credentials of the form "valid:<email>".
type fakeVerifier struct {
	err   error
	calls int
}

func (v *fakeVerifier) Verify(_ context.Context, credential string) (*auth.Identity, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	email, ok := strings.CutPrefix(credential, "valid:")
	if !ok {
		return nil, fmt.Errorf("bad credential")
	}
	_, hd, _ := strings.Cut(email, "@")
	return &auth.Identity{Email: email, HostedDomain: hd, Subject: "sub-" + email}, nil
}

// =========================================================================
// WIRING
// =========================================================================

type testEnv struct {
	store       *memStore
	verifier    *fakeVerifier
	sessions    *SessionService
	staff       *StaffService
	auth        *AuthService
	innovations *InnovationService
	teams       *TeamService
	comps       *CompetitionService
	dashboard   *DashboardService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	az, err := authz.NewEnforcer()
	require.NoError(t, err)

	store := newMemStore()
	logger := testLogger()
	env := &testEnv{store: store, verifier: &fakeVerifier{}}

	env.sessions = NewSessionService(store.Sessions(), 0, logger)
	env.staff = NewStaffService(store.Staff(), store.Users(), az, logger)
	env.auth = NewAuthService(env.verifier, env.staff, store.Users(), env.sessions,
		"pms.edu.my", []string{"Boss@PMS.edu.my"}, logger)
	env.innovations = NewInnovationService(store.Innovations(), store.Teams(), store.Staff(), az, logger)
	env.teams = NewTeamService(store.Innovations(), store.Teams(), store.Staff(), az, logger)
	env.comps = NewCompetitionService(store.Innovations(), store.Teams(), store.Competitions(), az, logger)
	env.dashboard = NewDashboardService(env.innovations, store.Competitions())
	return env
}

// createInnovation creates a record owned by owner and fails the test on error.
func (e *testEnv) createInnovation(t *testing.T, owner, title string) *model.Innovation {
	t.Helper()
	inv, err := e.innovations.Create(context.Background(), owner, InnovationInput{Title: title, Year: "2026"})
	require.NoError(t, err)
	return inv
}
