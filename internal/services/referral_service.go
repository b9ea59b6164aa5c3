package services

import (
	"context"
	"fmt"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"github.com/go-playground/validator/v10"
)

type ReferralPage struct {
	Items []models.Referral `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ReferralService exposes the edges written by the linker. There is no create
// operation: edges only come from enrollment.
type ReferralService interface {
	List(ctx context.Context, f models.ReferralFilter) (*ReferralPage, error)
	Get(ctx context.Context, caller models.Caller, id string) (*models.Referral, error)
	ListByReferrer(ctx context.Context, caller models.Caller, referrerID string) ([]models.Referral, error)
	Stats(ctx context.Context) (*models.ReferralStats, error)
	Update(ctx context.Context, id string, upd models.ReferralUpdate) (*models.Referral, error)
	Delete(ctx context.Context, id string) error
}

type referralService struct {
	repo     repository.ReferralRepository
	validate *validator.Validate
}

func NewReferralService(repo repository.ReferralRepository, validate *validator.Validate) ReferralService {
	return &referralService{repo: repo, validate: validate}
}

func (s *referralService) List(ctx context.Context, f models.ReferralFilter) (*ReferralPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	page, limit := pageBounds(f.Page, f.Limit)
	return &ReferralPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Get allows admins and either party of the edge.
func (s *referralService) Get(ctx context.Context, caller models.Caller, id string) (*models.Referral, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	ref, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && caller.EnrolleeID != ref.Referrer.Hex() && caller.EnrolleeID != ref.Referred.Hex() {
		return nil, ErrForbidden
	}
	return ref, nil
}

func (s *referralService) ListByReferrer(ctx context.Context, caller models.Caller, referrerID string) ([]models.Referral, error) {
	oid, err := repository.ParseID(referrerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && caller.EnrolleeID != oid.Hex() {
		return nil, ErrForbidden
	}
	return s.repo.ListByReferrer(ctx, oid)
}

func (s *referralService) Stats(ctx context.Context) (*models.ReferralStats, error) {
	return s.repo.Stats(ctx)
}

func (s *referralService) Update(ctx context.Context, id string, upd models.ReferralUpdate) (*models.Referral, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, validationErr(err)
	}
	return s.repo.Update(ctx, oid, upd)
}

func (s *referralService) Delete(ctx context.Context, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, oid)
}
