// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Enrollees mirrors the unique indexes of the Mongo collection.
type Enrollees struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Enrollee
	// popped one per Create call before the insert is attempted
	CreateErrs  []error
	FindCodeErr error
	SetLinkErr  error
}

func NewEnrollees() *Enrollees {
	return &Enrollees{byID: map[primitive.ObjectID]*models.Enrollee{}}
}

func (m *Enrollees) Create(_ context.Context, e *models.Enrollee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CreateErrs) > 0 {
		err := m.CreateErrs[0]
		m.CreateErrs = m.CreateErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, x := range m.byID {
		switch {
		case x.Email == e.Email:
			return &repository.DuplicateKeyError{Field: "email"}
		case x.ReferralCode == e.ReferralCode:
			return &repository.DuplicateKeyError{Field: "referral_code"}
		case x.Position == e.Position:
			return &repository.DuplicateKeyError{Field: "position"}
		}
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *Enrollees) get(id primitive.ObjectID) (*models.Enrollee, error) {
	e, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrEnrolleeNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Enrollees) FindByID(_ context.Context, id primitive.ObjectID) (*models.Enrollee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *Enrollees) findWhere(match func(*models.Enrollee) bool) (*models.Enrollee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.byID {
		if match(e) {
			return m.get(id)
		}
	}
	return nil, repository.ErrEnrolleeNotFound
}

func (m *Enrollees) FindByEmail(_ context.Context, email string) (*models.Enrollee, error) {
	return m.findWhere(func(e *models.Enrollee) bool { return e.Email == email })
}

func (m *Enrollees) FindByReferralCode(_ context.Context, code string) (*models.Enrollee, error) {
	if m.FindCodeErr != nil {
		return nil, m.FindCodeErr
	}
	return m.findWhere(func(e *models.Enrollee) bool { return e.ReferralCode == code })
}

func (m *Enrollees) sorted(match func(*models.Enrollee) bool) []models.Enrollee {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Enrollee{}
	for _, e := range m.byID {
		if match(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *Enrollees) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Enrollee, error) {
	want := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return m.sorted(func(e *models.Enrollee) bool { return want[e.ID] }), nil
}

func (m *Enrollees) List(_ context.Context, f models.EnrolleeFilter) ([]models.Enrollee, int64, error) {
	items := m.sorted(func(e *models.Enrollee) bool {
		return (f.Status == "" || e.Status == f.Status) &&
			(f.Package == "" || e.Package == f.Package) &&
			(f.Team == "" || e.Team == f.Team) &&
			(f.Search == "" || strings.Contains(strings.ToLower(e.FullName()+" "+e.Email), strings.ToLower(f.Search)))
	})
	return items, int64(len(items)), nil
}

func (m *Enrollees) ListByTeam(_ context.Context, team models.TeamSide) ([]models.Enrollee, error) {
	return m.sorted(func(e *models.Enrollee) bool { return e.Team == team }), nil
}

func (m *Enrollees) Update(_ context.Context, e *models.Enrollee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[e.ID]
	if !ok {
		return repository.ErrEnrolleeNotFound
	}
	next := *e
	// immutable fields are never written by Update
	next.Position, next.Email, next.ReferralCode = cur.Position, cur.Email, cur.ReferralCode
	next.SponsorID, next.SponsorCode, next.LinkStatus = cur.SponsorID, cur.SponsorCode, cur.LinkStatus
	next.UpdatedAt = time.Now().UTC()
	m.byID[e.ID] = &next
	return nil
}

func (m *Enrollees) SetLink(_ context.Context, id primitive.ObjectID, status models.LinkStatus, sponsorID *primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetLinkErr != nil {
		return m.SetLinkErr
	}
	e, ok := m.byID[id]
	if !ok {
		return repository.ErrEnrolleeNotFound
	}
	e.LinkStatus, e.SponsorID = status, sponsorID
	return nil
}

func (m *Enrollees) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrEnrolleeNotFound
	}
	delete(m.byID, id)
	return nil
}

type Referrals struct {
	mu        sync.Mutex
	edges     []models.Referral
	CreateErr error
}

func (m *Referrals) Create(_ context.Context, r *models.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, e := range m.edges {
		if e.Referred == r.Referred {
			return &repository.DuplicateKeyError{Field: "referred"}
		}
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.CreatedAt = time.Now().UTC()
	m.edges = append(m.edges, *r)
	return nil
}

func (m *Referrals) find(match func(models.Referral) bool) (*models.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if match(e) {
			cp := e
			return &cp, nil
		}
	}
	return nil, repository.ErrReferralNotFound
}

func (m *Referrals) FindByID(_ context.Context, id primitive.ObjectID) (*models.Referral, error) {
	return m.find(func(r models.Referral) bool { return r.ID == id })
}

func (m *Referrals) FindByReferred(_ context.Context, id primitive.ObjectID) (*models.Referral, error) {
	return m.find(func(r models.Referral) bool { return r.Referred == id })
}

func (m *Referrals) ListByReferrer(_ context.Context, id primitive.ObjectID) ([]models.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Referral{}
	for _, e := range m.edges {
		if e.Referrer == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Referrals) List(_ context.Context, f models.ReferralFilter) ([]models.Referral, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Referral{}
	for _, e := range m.edges {
		if f.Status == "" || e.Status == f.Status {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (m *Referrals) Update(_ context.Context, id primitive.ObjectID, upd models.ReferralUpdate) (*models.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.edges {
		if m.edges[i].ID != id {
			continue
		}
		if upd.Status != nil {
			m.edges[i].Status = *upd.Status
		}
		if upd.Commission != nil {
			m.edges[i].Commission = *upd.Commission
		}
		cp := m.edges[i]
		return &cp, nil
	}
	return nil, repository.ErrReferralNotFound
}

func (m *Referrals) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.edges {
		if e.ID == id {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return nil
		}
	}
	return repository.ErrReferralNotFound
}

func (m *Referrals) DeleteTouching(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.edges[:0]
	var n int64
	for _, e := range m.edges {
		if e.Referrer == id || e.Referred == id {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.edges = kept
	return n, nil
}

func (m *Referrals) Stats(context.Context) (*models.ReferralStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &models.ReferralStats{Total: int64(len(m.edges))}
	for _, e := range m.edges {
		switch e.Status {
		case models.ReferralPending:
			st.Pending++
		case models.ReferralCompleted:
			st.Completed++
		case models.ReferralCancelled:
			st.Cancelled++
		}
		st.TotalCommission += e.Commission
	}
	return st, nil
}

func (m *Referrals) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

type Sequencer struct {
	mu  sync.Mutex
	seq map[string]int64
}

func (s *Sequencer) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == nil {
		s.seq = map[string]int64{}
	}
	s.seq[name]++
	return s.seq[name], nil
}

type Accounts struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]*models.Account
	Touches   int
	CreateErr error
}

func NewAccounts() *Accounts {
	return &Accounts{byID: map[primitive.ObjectID]*models.Account{}}
}

func (m *Accounts) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	a.Email = models.NormalizeEmail(a.Email)
	for _, x := range m.byID {
		if x.Email == a.Email {
			return &repository.DuplicateKeyError{Field: "email"}
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *Accounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *Accounts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Accounts) TouchLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		a.LastLoginAt = &at
		m.Touches++
	}
	return nil
}

func (m *Accounts) DeleteByEnrollee(_ context.Context, enrolleeID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.byID {
		if a.EnrolleeID != nil && *a.EnrolleeID == enrolleeID {
			delete(m.byID, id)
		}
	}
	return nil
}

type Notifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (m *Notifications) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *Notifications) ListByRecipient(_ context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.items[i]
		if n.Recipient == recipient && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Notifications) MarkRead(_ context.Context, id, recipient primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].Recipient == recipient {
			m.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (m *Notifications) MarkAllRead(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].Recipient == recipient && !m.items[i].Read {
			m.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (m *Notifications) Delete(_ context.Context, id, recipient primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].Recipient == recipient {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

// Edges returns a copy of every stored edge in insertion order.
func (m *Referrals) Edges() []models.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Referral(nil), m.edges...)
}

// Current returns the last value handed out for name.
func (s *Sequencer) Current(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[name]
}

func (m *Accounts) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Notifications) Items() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.items...)
}

var (
	_ repository.EnrolleeRepository     = (*Enrollees)(nil)
	_ repository.ReferralRepository     = (*Referrals)(nil)
	_ repository.Sequencer              = (*Sequencer)(nil)
	_ repository.AccountRepository      = (*Accounts)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
)
