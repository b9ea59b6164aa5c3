package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

type Template string

const (
	TemplateEnrollee Template = "enrollee"
	TemplateReceipt  Template = "receipt"
	TemplateReport   Template = "report"
	TemplateDefault  Template = "default"
)

const (
	brandTitle = "Kevin's Konga Pre-Enrollment"
	dateLayout = "January 2, 2006"
)

// EnrolleeSheet is the data behind the enrollee record sheet.
type EnrolleeSheet struct {
	Name       string
	Email      string
	Phone      string
	Package    string
	Position   int64
	Team       string
	Status     string
	ReferralID string
	EnrolledAt time.Time

	PaymentCollected bool
	CardType         string
	CardLastFour     string
	CardExpiry       string
	// Address holds only the parts the enrollee filled in, in print order.
	Address []Field
}

// paymentFields shows masked card details once a payment is collected.
func (d EnrolleeSheet) paymentFields() []Field {
	if !d.PaymentCollected {
		return []Field{{"Payment Collected", "No"}}
	}
	out := []Field{{"Payment Collected", "Yes"}}
	if d.CardLastFour == "" {
		return out
	}
	return append(out,
		Field{"Card Type", strings.ToUpper(d.CardType)},
		Field{"Card Number", "**** **** **** " + d.CardLastFour},
		Field{"Expiry Date", d.CardExpiry},
	)
}

type Receipt struct {
	Number        string
	Date          time.Time
	Customer      string
	Package       string
	Amount        float64
	PaymentMethod string
}

type Field struct {
	Label string
	Value string
}

type Summary struct {
	Title       string
	Subtitle    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	GeneratedAt time.Time
	Summary     []Field
	Details     []Field
	Notes       string
}

type page struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

var (
	blue = [3]int{0, 102, 204}
	ink  = [3]int{68, 68, 68}
	gray = [3]int{102, 102, 102}
)

func (p page) color(c [3]int) { p.pdf.SetTextColor(c[0], c[1], c[2]) }

func (p page) centered(size float64, style string, c [3]int, text string) {
	p.pdf.SetFont("Helvetica", style, size)
	p.color(c)
	p.pdf.CellFormat(0, size*0.6, p.tr(text), "", 1, "C", false, 0, "")
}

func (p page) line(text string) {
	p.pdf.MultiCell(0, 7, p.tr(text), "", "L", false)
}

func (p page) heading(text string) {
	p.pdf.Ln(4)
	p.pdf.SetFont("Helvetica", "BU", 12)
	p.color(ink)
	p.pdf.CellFormat(0, 8, p.tr(text), "", 1, "L", false, 0, "")
	p.pdf.SetFont("Helvetica", "", 12)
}

func (p page) rule() {
	p.pdf.SetDrawColor(170, 170, 170)
	p.pdf.SetLineWidth(0.3)
	left, _, right, _ := p.pdf.GetMargins()
	w, _ := p.pdf.GetPageSize()
	y := p.pdf.GetY()
	p.pdf.Line(left, y, w-right, y)
	p.pdf.Ln(4)
}

func drawEnrollee(p page, d EnrolleeSheet, hasLogo bool) {
	if hasLogo {
		p.pdf.ImageOptions(logoName, 18, 12, 30, 0, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	p.pdf.SetFont("Helvetica", "", 9)
	p.color(ink)
	p.pdf.SetY(14)
	p.pdf.CellFormat(0, 5, "Talk Fusion Video Email", "", 1, "R", false, 0, "")
	p.pdf.CellFormat(0, 5, "Pre-Launch Opportunity", "", 1, "R", false, 0, "")
	p.pdf.SetXY(52, 24)
	p.pdf.SetFont("Helvetica", "B", 18)
	p.pdf.CellFormat(0, 10, p.tr(brandTitle), "", 1, "L", false, 0, "")
	p.pdf.SetY(44)
	p.rule()

	p.centered(15, "B", blue, "Enrollee Information")
	p.pdf.Ln(4)

	rows := []Field{
		{"Name", d.Name},
		{"Email", d.Email},
		{"Phone", d.Phone},
		{"Package", strings.ToUpper(d.Package)},
		{"Position", fmt.Sprintf("#%d in Konga Line", d.Position)},
		{"Team", strings.ToUpper(d.Team)},
		{"Status", strings.ToUpper(d.Status)},
		{"Referral ID", d.ReferralID},
		{"Enrollment Date", d.EnrolledAt.UTC().Format(dateLayout)},
	}
	p.color(ink)
	p.pdf.SetFont("Helvetica", "B", 12)
	p.pdf.CellFormat(55, 9, "Field", "B", 0, "L", false, 0, "")
	p.pdf.CellFormat(0, 9, "Value", "B", 1, "L", false, 0, "")
	p.pdf.SetFont("Helvetica", "", 12)
	for _, r := range rows {
		p.pdf.CellFormat(55, 9, r.Label, "", 0, "L", false, 0, "")
		p.pdf.CellFormat(0, 9, p.tr(r.Value), "", 1, "L", false, 0, "")
	}

	p.heading("Payment Status")
	for _, f := range d.paymentFields() {
		p.line(f.Label + ": " + f.Value)
	}
	if len(d.Address) > 0 {
		p.heading("Address")
		for _, f := range d.Address {
			p.line(f.Label + ": " + f.Value)
		}
	}
}

func drawReceipt(p page, d Receipt) {
	p.centered(20, "B", blue, "Payment Receipt")
	p.pdf.Ln(6)
	p.pdf.SetFont("Helvetica", "", 12)
	p.color(ink)
	p.line("Receipt Number: " + d.Number)
	p.line("Date: " + d.Date.UTC().Format(dateLayout))
	p.line("Customer: " + d.Customer)
	p.pdf.Ln(4)
	p.line("Package: " + strings.ToUpper(d.Package))
	p.line(fmt.Sprintf("Amount: $%.2f", d.Amount))
	p.line("Payment Method: " + d.PaymentMethod)
	p.pdf.Ln(6)
	p.centered(12, "", ink, "Thank you for your purchase!")
	p.pdf.Ln(2)
	p.centered(12, "", ink, brandTitle)
}

func drawReport(p page, d Summary) {
	p.centered(20, "B", blue, d.Title)
	p.pdf.Ln(3)
	if d.Subtitle != "" {
		p.centered(14, "", gray, d.Subtitle)
		p.pdf.Ln(3)
	}
	p.pdf.SetFont("Helvetica", "", 12)
	p.color(ink)
	p.line(fmt.Sprintf("Report Period: %s to %s", d.PeriodStart.UTC().Format(dateLayout), d.PeriodEnd.UTC().Format(dateLayout)))
	p.line("Generated On: " + d.GeneratedAt.UTC().Format(time.RFC1123))

	p.heading("Summary")
	for _, f := range d.Summary {
		p.line(f.Label + ": " + f.Value)
	}
	p.heading("Details")
	for i, f := range d.Details {
		p.line(fmt.Sprintf("%d. %s: %s", i+1, f.Label, f.Value))
	}
	if d.Notes != "" {
		p.heading("Notes")
		p.line(d.Notes)
	}
}

func drawDefault(p page, data any) {
	p.centered(20, "B", blue, "Kevin's Konga Document")
	p.pdf.Ln(6)
	p.pdf.SetFont("Helvetica", "", 12)
	p.color(ink)
	switch d := data.(type) {
	case []Field:
		for _, f := range d {
			p.line(f.Label + ": " + f.Value)
		}
	case map[string]string:
		for _, k := range sortedKeys(d) {
			p.line(k + ": " + d[k])
		}
	case nil:
	default:
		p.line(fmt.Sprint(d))
	}
}

func footerText(t Template) string {
	switch t {
	case TemplateEnrollee:
		return "This document is confidential and contains proprietary information."
	case TemplateReport:
		return "This report is generated from Kevin's Konga Pre-Enrollment System."
	case TemplateReceipt:
		return brandTitle
	default:
		return "Generated from Kevin's Konga Pre-Enrollment System"
	}
}
