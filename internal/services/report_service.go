package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/report"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"github.com/google/uuid"
)

type Renderer interface {
	Render(ctx context.Context, t report.Template, id string, data any) (*report.Document, error)
}

type ReportService interface {
	PrintEnrollee(ctx context.Context, caller models.Caller, id string) (*report.Document, error)
	Receipt(ctx context.Context, caller models.Caller, id string) (*report.Document, error)
	DashboardReport(ctx context.Context) (*report.Document, error)
}

type reportService struct {
	enrollees repository.EnrolleeRepository
	stats     repository.StatsRepository
	renderer  Renderer
	now       func() time.Time
}

func NewReportService(enrollees repository.EnrolleeRepository, stats repository.StatsRepository, renderer Renderer) ReportService {
	return &reportService{enrollees: enrollees, stats: stats, renderer: renderer, now: time.Now}
}

func (s *reportService) load(ctx context.Context, caller models.Caller, id string) (*models.Enrollee, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	e, err := s.enrollees.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !owns(caller, e) {
		return nil, ErrForbidden
	}
	return e, nil
}

func (s *reportService) PrintEnrollee(ctx context.Context, caller models.Caller, id string) (*report.Document, error) {
	e, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	sheet := report.EnrolleeSheet{
		Name:       e.FullName(),
		Email:      e.Email,
		Phone:      e.Phone,
		Package:    string(e.Package),
		Position:   e.Position,
		Team:       string(e.Team),
		Status:     string(e.Status),
		ReferralID: e.ReferralCode,
		EnrolledAt: e.CreatedAt,

		PaymentCollected: e.PaymentCollected,
		Address:          addressFields(e.Address),
	}
	if e.PaymentInfo != nil {
		sheet.CardType = e.PaymentInfo.CardType
		sheet.CardLastFour = e.PaymentInfo.LastFour
		sheet.CardExpiry = e.PaymentInfo.ExpiryDate
	}
	return s.renderer.Render(ctx, report.TemplateEnrollee, e.ID.Hex(), sheet)
}

func addressFields(a models.Address) []report.Field {
	parts := []report.Field{
		{Label: "Street", Value: a.Street},
		{Label: "City", Value: a.City},
		{Label: "State", Value: a.State},
		{Label: "ZIP", Value: a.Zip},
		{Label: "Country", Value: a.Country},
	}
	out := parts[:0]
	for _, f := range parts {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

func (s *reportService) Receipt(ctx context.Context, caller models.Caller, id string) (*report.Document, error) {
	e, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !e.PaymentCollected || e.PaymentInfo == nil {
		return nil, ErrPaymentNotCollected
	}
	rc := report.Receipt{
		Number:        fmt.Sprintf("RC-%06d-%s", e.Position, strings.ToUpper(uuid.NewString()[:8])),
		Date:          e.UpdatedAt,
		Customer:      e.FullName(),
		Package:       string(e.Package),
		Amount:        e.PackagePrice,
		PaymentMethod: fmt.Sprintf("%s ending %s", strings.ToUpper(e.PaymentInfo.CardType), e.PaymentInfo.LastFour),
	}
	return s.renderer.Render(ctx, report.TemplateReceipt, e.ID.Hex(), rc)
}

// DashboardReport renders the admin dashboard figures as a report document.
func (s *reportService) DashboardReport(ctx context.Context) (*report.Document, error) {
	d, err := s.stats.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	now := s.now().UTC()
	itoa := func(n int64) string { return strconv.FormatInt(n, 10) }

	sum := report.Summary{
		Title:       "Enrollment Report",
		Subtitle:    "Kevin's Konga Pre-Enrollment Dashboard",
		PeriodStart: now.AddDate(0, -1, 0),
		PeriodEnd:   now,
		GeneratedAt: now,
		Summary: []report.Field{
			{Label: "Total Enrollees", Value: itoa(d.Total)},
			{Label: "Active", Value: itoa(d.Active)},
			{Label: "Pending", Value: itoa(d.Pending)},
			{Label: "Paid", Value: itoa(d.Payments.Paid)},
			{Label: "Unpaid", Value: itoa(d.Payments.Unpaid)},
		},
		Details: []report.Field{
			{Label: "Starter", Value: itoa(d.Packages.Starter)},
			{Label: "Elite", Value: itoa(d.Packages.Elite)},
			{Label: "Pro", Value: itoa(d.Packages.Pro)},
			{Label: "Left Team", Value: itoa(d.Teams.Left)},
			{Label: "Right Team", Value: itoa(d.Teams.Right)},
			{Label: "Unassigned", Value: itoa(d.Teams.None)},
		},
	}
	for _, r := range d.TopReferrers {
		sum.Details = append(sum.Details, report.Field{
			Label: "Top referrer " + strings.TrimSpace(r.FirstName+" "+r.LastName),
			Value: itoa(r.Referrals) + " referrals",
		})
	}
	if len(d.TopReferrers) == 0 {
		sum.Notes = "No referrals recorded yet."
	}
	return s.renderer.Render(ctx, report.TemplateReport, "dashboard-"+now.Format("2006-01-02"), sum)
}
