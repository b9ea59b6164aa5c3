package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fathima-sithara/konga-enrollment/internal/events"
	"github.com/fathima-sithara/konga-enrollment/internal/metrics"
	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxCodeAttempts = 5

type AddressInput struct {
	Street  string `json:"street" validate:"required,max=120"`
	City    string `json:"city" validate:"required,max=80"`
	State   string `json:"state" validate:"max=80"`
	Zip     string `json:"zip" validate:"max=20"`
	Country string `json:"country" validate:"required,max=80"`
}

func (a AddressInput) model() models.Address {
	return models.Address{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip, Country: a.Country}
}

type CreateEnrolleeInput struct {
	FirstName   string             `json:"first_name" validate:"required,min=2,max=50"`
	LastName    string             `json:"last_name" validate:"required,min=2,max=50"`
	Email       string             `json:"email" validate:"required,email"`
	Phone       string             `json:"phone" validate:"required,min=7,max=20"`
	Address     AddressInput       `json:"address"`
	Package     models.PackageTier `json:"selected_package" validate:"required,oneof=starter elite pro"`
	SponsorCode string             `json:"sponsor_code" validate:"max=20"`
	Password    string             `json:"password" validate:"omitempty,min=6,bcryptlen"`
}

// UpdateEnrolleeInput is a partial update; nil fields are left alone.
type UpdateEnrolleeInput struct {
	FirstName *string                `json:"first_name" validate:"omitempty,min=2,max=50"`
	LastName  *string                `json:"last_name" validate:"omitempty,min=2,max=50"`
	Phone     *string                `json:"phone" validate:"omitempty,min=7,max=20"`
	Address   *AddressInput          `json:"address"`
	Package   *models.PackageTier    `json:"selected_package" validate:"omitempty,oneof=starter elite pro"`
	Status    *models.EnrolleeStatus `json:"status" validate:"omitempty,oneof=pending active cancelled completed"`
	Team      *models.TeamSide       `json:"team" validate:"omitempty,oneof=left right none"`
}

type PaymentInput struct {
	CardType   string `json:"card_type" validate:"required,oneof=visa mastercard amex discover"`
	LastFour   string `json:"last_four" validate:"required,last4"`
	ExpiryDate string `json:"expiry_date" validate:"required,expiry"`
}

// EnrolleeAccounts manages the login identity tied to an enrollee.
type EnrolleeAccounts interface {
	RegisterEnrollee(ctx context.Context, e *models.Enrollee, password string) error
	RemoveEnrollee(ctx context.Context, enrolleeID primitive.ObjectID) error
}

type EnrolleeService interface {
	Create(ctx context.Context, in CreateEnrolleeInput) (*models.Enrollee, error)
	Relink(ctx context.Context, caller models.Caller, id string) (*models.Enrollee, error)
	Get(ctx context.Context, caller models.Caller, id string) (*models.Enrollee, error)
	List(ctx context.Context, caller models.Caller, f models.EnrolleeFilter) (*models.EnrolleePage, error)
	ListByTeam(ctx context.Context, caller models.Caller, team string) ([]models.Enrollee, error)
	ListBySponsor(ctx context.Context, caller models.Caller, sponsorID string) ([]models.Enrollee, error)
	Update(ctx context.Context, caller models.Caller, id string, in UpdateEnrolleeInput) (*models.Enrollee, error)
	UpdatePayment(ctx context.Context, caller models.Caller, id string, in PaymentInput) (*models.Enrollee, error)
	Delete(ctx context.Context, caller models.Caller, id string) error
}

type enrolleeService struct {
	repo      repository.EnrolleeRepository
	referrals repository.ReferralRepository
	seq       repository.Sequencer
	accounts  EnrolleeAccounts
	events    events.Publisher
	validate  *validator.Validate
	log       *zap.Logger
	random    io.Reader
}

func NewEnrolleeService(
	repo repository.EnrolleeRepository,
	referrals repository.ReferralRepository,
	seq repository.Sequencer,
	accounts EnrolleeAccounts,
	publisher events.Publisher,
	validate *validator.Validate,
	log *zap.Logger,
) EnrolleeService {
	return &enrolleeService{
		repo:      repo,
		referrals: referrals,
		seq:       seq,
		accounts:  accounts,
		events:    publisher,
		validate:  validate,
		log:       log,
		random:    rand.Reader,
	}
}

// Create persists a new enrollee at the next Konga-line position and, when a
// sponsor code was supplied, links it to the sponsor.
func (s *enrolleeService) Create(ctx context.Context, in CreateEnrolleeInput) (*models.Enrollee, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}

	email := models.NormalizeEmail(in.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrEnrolleeNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	pos, err := s.seq.Next(ctx, repository.PositionSequence)
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	e := &models.Enrollee{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		Phone:        in.Phone,
		Address:      in.Address.model(),
		Package:      in.Package,
		PackagePrice: in.Package.Price(),
		Status:       models.StatusPending,
		Position:     pos,
		Team:         models.TeamNone,
		SponsorCode:  models.NormalizeCode(in.SponsorCode),
		LinkStatus:   models.LinkNone,
	}
	// orphaned until the link step records its outcome
	if e.SponsorCode != "" {
		e.LinkStatus = models.LinkOrphaned
	}
	if err := s.insert(ctx, e); err != nil {
		return nil, err
	}

	if in.Password != "" {
		if err := s.accounts.RegisterEnrollee(ctx, e, in.Password); err != nil {
			s.discard(ctx, e)
			return nil, fmt.Errorf("register account: %w", err)
		}
	}
	metrics.EnrollmentsTotal.WithLabelValues(string(e.Package)).Inc()

	if e.SponsorCode != "" {
		if err := s.link(ctx, e); err != nil {
			s.log.Error("referral link failed, enrollee left orphaned",
				zap.String("enrollee_id", e.ID.Hex()),
				zap.String("sponsor_code", e.SponsorCode),
				zap.Error(err))
		}
	}

	s.publish(ctx, events.EnrolleeCreated, e)
	return e, nil
}

// discard removes a record whose account could not be created.
func (s *enrolleeService) discard(ctx context.Context, e *models.Enrollee) {
	if err := s.repo.Delete(ctx, e.ID); err != nil {
		s.log.Error("failed to remove enrollee after account error",
			zap.String("enrollee_id", e.ID.Hex()), zap.Error(err))
	}
}

// insert retries with a fresh referral code while the code collides.
func (s *enrolleeService) insert(ctx context.Context, e *models.Enrollee) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateReferralCode(e.FirstName, e.LastName, s.random)
		if err != nil {
			return fmt.Errorf("generate referral code: %w", err)
		}
		e.ReferralCode = code

		err = s.repo.Create(ctx, e)
		var dup *repository.DuplicateKeyError
		switch {
		case err == nil:
			return nil
		case errors.As(err, &dup) && dup.Field == "referral_code":
			s.log.Debug("referral code collision", zap.String("code", code), zap.Int("attempt", attempt+1))
			continue
		case errors.As(err, &dup) && dup.Field == "email":
			return ErrEmailTaken
		default:
			return fmt.Errorf("insert enrollee: %w", err)
		}
	}
	return fmt.Errorf("referral code still colliding after %d attempts: %w", maxCodeAttempts, ErrInternal)
}

// link resolves e.SponsorCode and records the outcome on e. A non-nil error
// means the record was left orphaned.
func (s *enrolleeService) link(ctx context.Context, e *models.Enrollee) error {
	status, sponsorID, linkErr := s.resolveSponsor(ctx, e)
	if linkErr != nil {
		status, sponsorID = models.LinkOrphaned, nil
	}
	if err := s.repo.SetLink(ctx, e.ID, status, sponsorID); err != nil {
		// the edge, if written, still stands; the record keeps its previous link state (orphaned).
		return fmt.Errorf("record link status %s: %w", status, err)
	}
	e.LinkStatus = status
	e.SponsorID = sponsorID
	metrics.ReferralLinksTotal.WithLabelValues(string(status)).Inc()
	return linkErr
}

func (s *enrolleeService) resolveSponsor(ctx context.Context, e *models.Enrollee) (models.LinkStatus, *primitive.ObjectID, error) {
	sponsor, err := s.repo.FindByReferralCode(ctx, e.SponsorCode)
	if errors.Is(err, repository.ErrEnrolleeNotFound) {
		return models.LinkUnmatched, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("lookup sponsor: %w", err)
	}
	if sponsor.ID == e.ID {
		return models.LinkUnmatched, nil, nil
	}

	edge := &models.Referral{
		Referrer: sponsor.ID,
		Referred: e.ID,
		Status:   models.ReferralCompleted,
	}
	err = s.referrals.Create(ctx, edge)
	if errors.Is(err, repository.ErrDuplicateKey) {
		existing, ferr := s.referrals.FindByReferred(ctx, e.ID)
		if ferr != nil {
			return "", nil, fmt.Errorf("load existing edge: %w", ferr)
		}
		return models.LinkLinked, &existing.Referrer, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("insert referral edge: %w", err)
	}
	return models.LinkLinked, &sponsor.ID, nil
}

func (s *enrolleeService) Relink(ctx context.Context, caller models.Caller, id string) (*models.Enrollee, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.LinkStatus != models.LinkOrphaned {
		return nil, ErrNotRelinkable
	}
	if err := s.link(ctx, e); err != nil {
		return nil, fmt.Errorf("relink %s: %w", e.ID.Hex(), err)
	}
	if e.LinkStatus == models.LinkLinked {
		s.publish(ctx, events.EnrolleeLinked, e)
	}
	return e, nil
}

func (s *enrolleeService) Get(ctx context.Context, caller models.Caller, id string) (*models.Enrollee, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(caller, e) {
		return nil, ErrForbidden
	}
	return e, nil
}

func (s *enrolleeService) List(ctx context.Context, caller models.Caller, f models.EnrolleeFilter) (*models.EnrolleePage, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if f.Team != "" && !f.Team.Valid() {
		return nil, ErrInvalidTeam
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list enrollees: %w", err)
	}
	page, limit := pageBounds(f.Page, f.Limit)
	return &models.EnrolleePage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *enrolleeService) ListByTeam(ctx context.Context, caller models.Caller, team string) ([]models.Enrollee, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	side := models.TeamSide(team)
	if !side.Valid() {
		return nil, ErrInvalidTeam
	}
	return s.repo.ListByTeam(ctx, side)
}

// ListBySponsor follows the sponsor's outgoing referral edges.
func (s *enrolleeService) ListBySponsor(ctx context.Context, caller models.Caller, sponsorID string) ([]models.Enrollee, error) {
	sponsor, err := s.find(ctx, sponsorID)
	if err != nil {
		return nil, err
	}
	if !owns(caller, sponsor) {
		return nil, ErrForbidden
	}
	edges, err := s.referrals.ListByReferrer(ctx, sponsor.ID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	if len(edges) == 0 {
		return []models.Enrollee{}, nil
	}
	ids := make([]primitive.ObjectID, len(edges))
	for i, edge := range edges {
		ids[i] = edge.Referred
	}
	return s.repo.FindByIDs(ctx, ids)
}

func (s *enrolleeService) Update(ctx context.Context, caller models.Caller, id string, in UpdateEnrolleeInput) (*models.Enrollee, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(caller, e) {
		return nil, ErrForbidden
	}
	if !caller.IsAdmin() && (in.Status != nil || in.Team != nil) {
		return nil, ErrForbidden
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}

	prevTeam := e.Team
	if in.FirstName != nil {
		e.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		e.LastName = *in.LastName
	}
	if in.Phone != nil {
		e.Phone = *in.Phone
	}
	if in.Address != nil {
		e.Address = in.Address.model()
	}
	if in.Package != nil {
		e.Package = *in.Package
		e.PackagePrice = in.Package.Price()
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.Team != nil {
		e.Team = *in.Team
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update enrollee: %w", err)
	}
	if e.Team != prevTeam {
		s.publish(ctx, events.TeamChanged, e)
	}
	return e, nil
}

func (s *enrolleeService) UpdatePayment(ctx context.Context, caller models.Caller, id string, in PaymentInput) (*models.Enrollee, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(caller, e) {
		return nil, ErrForbidden
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}

	e.PaymentCollected = true
	e.PaymentInfo = &models.PaymentInfo{CardType: in.CardType, LastFour: in.LastFour, ExpiryDate: in.ExpiryDate}
	e.Status = models.StatusActive
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	s.publish(ctx, events.PaymentCollected, e)
	return e, nil
}

// Delete removes the record, every referral edge touching it and its login account.
func (s *enrolleeService) Delete(ctx context.Context, caller models.Caller, id string) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}
	if n, err := s.referrals.DeleteTouching(ctx, oid); err != nil {
		s.log.Error("cleanup referral edges", zap.String("enrollee_id", id), zap.Error(err))
	} else if n > 0 {
		s.log.Info("removed referral edges", zap.String("enrollee_id", id), zap.Int64("count", n))
	}
	if err := s.accounts.RemoveEnrollee(ctx, oid); err != nil {
		s.log.Error("cleanup account", zap.String("enrollee_id", id), zap.Error(err))
	}
	return nil
}

func (s *enrolleeService) find(ctx context.Context, id string) (*models.Enrollee, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, oid)
}

func (s *enrolleeService) publish(ctx context.Context, t events.Type, e *models.Enrollee) {
	if err := s.events.Publish(ctx, events.New(t, e)); err != nil {
		s.log.Warn("event publish failed", zap.String("type", string(t)), zap.String("enrollee_id", e.ID.Hex()), zap.Error(err))
	}
}

// owns reports whether the caller may act on the record as its owner.
func owns(caller models.Caller, e *models.Enrollee) bool {
	return caller.IsAdmin() || (caller.Email != "" && models.NormalizeEmail(caller.Email) == e.Email)
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
