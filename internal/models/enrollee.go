package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PackageTier string

const (
	PackageStarter PackageTier = "starter"
	PackageElite   PackageTier = "elite"
	PackagePro     PackageTier = "pro"
)

// Packages lists every tier in display order.
var Packages = []PackageTier{PackageStarter, PackageElite, PackagePro}

var packagePrices = map[PackageTier]float64{
	PackageStarter: 175,
	PackageElite:   350,
	PackagePro:     700,
}

func (p PackageTier) Valid() bool {
	_, ok := packagePrices[p]
	return ok
}

// Price returns the USD price of the tier, zero for an unknown tier.
func (p PackageTier) Price() float64 {
	return packagePrices[p]
}

func (p PackageTier) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

type EnrolleeStatus string

const (
	StatusPending   EnrolleeStatus = "pending"
	StatusActive    EnrolleeStatus = "active"
	StatusCancelled EnrolleeStatus = "cancelled"
	StatusCompleted EnrolleeStatus = "completed"
)

func (s EnrolleeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type TeamSide string

const (
	TeamLeft  TeamSide = "left"
	TeamRight TeamSide = "right"
	TeamNone  TeamSide = "none"
)

func (t TeamSide) Valid() bool {
	switch t {
	case TeamLeft, TeamRight, TeamNone:
		return true
	}
	return false
}

// LinkStatus records the outcome of resolving the sponsor code.
type LinkStatus string

const (
	LinkNone      LinkStatus = "none"      // no sponsor code submitted
	LinkLinked    LinkStatus = "linked"    // referral edge recorded
	LinkUnmatched LinkStatus = "unmatched" // code matched nobody
	LinkOrphaned  LinkStatus = "orphaned"  // lookup or edge write failed, relink pending
)

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Zip     string `bson:"zip,omitempty" json:"zip,omitempty"`
	Country string `bson:"country" json:"country"`
}

// PaymentInfo only ever holds masked card data.
type PaymentInfo struct {
	CardType   string `bson:"card_type" json:"card_type"`
	LastFour   string `bson:"last_four" json:"last_four"`
	ExpiryDate string `bson:"expiry_date" json:"expiry_date"`
}

type Enrollee struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FirstName        string              `bson:"first_name" json:"first_name"`
	LastName         string              `bson:"last_name" json:"last_name"`
	Email            string              `bson:"email" json:"email"`
	Phone            string              `bson:"phone" json:"phone"`
	Address          Address             `bson:"address" json:"address"`
	Package          PackageTier         `bson:"selected_package" json:"selected_package"`
	PackagePrice     float64             `bson:"package_price" json:"package_price"`
	Status           EnrolleeStatus      `bson:"status" json:"status"`
	Position         int64               `bson:"position" json:"position"`
	Team             TeamSide            `bson:"team" json:"team"`
	SponsorCode      string              `bson:"sponsor_code,omitempty" json:"sponsor_code,omitempty"`
	SponsorID        *primitive.ObjectID `bson:"sponsor_id,omitempty" json:"sponsor_id,omitempty"`
	LinkStatus       LinkStatus          `bson:"link_status" json:"link_status"`
	ReferralCode     string              `bson:"referral_code" json:"referral_code"`
	PaymentCollected bool                `bson:"payment_collected" json:"payment_collected"`
	PaymentInfo      *PaymentInfo        `bson:"payment_info,omitempty" json:"payment_info,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}

func (e *Enrollee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeCode is the canonical form of a referral code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EnrolleeFilter narrows admin listings. Zero values match everything.
type EnrolleeFilter struct {
	Status  EnrolleeStatus
	Package PackageTier
	Team    TeamSide
	Search  string
	Page    int
	Limit   int
}

type EnrolleePage struct {
	Items []Enrollee `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}
