package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Typed results of the aggregation reports.

type PackageCounts struct {
	Starter int64 `json:"starter"`
	Elite   int64 `json:"elite"`
	Pro     int64 `json:"pro"`
}

func (p PackageCounts) Total() int64 {
	return p.Starter + p.Elite + p.Pro
}

// Add records n enrollees of tier; unknown tiers are ignored.
func (p *PackageCounts) Add(tier PackageTier, n int64) {
	switch tier {
	case PackageStarter:
		p.Starter += n
	case PackageElite:
		p.Elite += n
	case PackagePro:
		p.Pro += n
	}
}

type TeamCounts struct {
	Left  int64 `json:"left"`
	Right int64 `json:"right"`
	None  int64 `json:"none"`
}

func (t *TeamCounts) Add(side TeamSide, n int64) {
	switch side {
	case TeamLeft:
		t.Left += n
	case TeamRight:
		t.Right += n
	default:
		t.None += n
	}
}

type PaymentCounts struct {
	Paid   int64 `json:"paid"`
	Unpaid int64 `json:"unpaid"`
}

type StatusCounts struct {
	Pending   int64 `json:"pending"`
	Active    int64 `json:"active"`
	Cancelled int64 `json:"cancelled"`
	Completed int64 `json:"completed"`
}

func (s *StatusCounts) Add(status EnrolleeStatus, n int64) {
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusActive:
		s.Active += n
	case StatusCancelled:
		s.Cancelled += n
	case StatusCompleted:
		s.Completed += n
	}
}

type CountryCount struct {
	Country string `bson:"_id" json:"country"`
	Count   int64  `bson:"count" json:"count"`
}

// DateCount is one bucket of a time series; Bucket is the formatted date.
type DateCount struct {
	Bucket string `bson:"_id" json:"bucket"`
	Count  int64  `bson:"count" json:"count"`
}

type EnrolleeSummary struct {
	Total     int64          `json:"total"`
	Statuses  StatusCounts   `json:"statuses"`
	Packages  PackageCounts  `json:"packages"`
	Teams     TeamCounts     `json:"teams"`
	Payments  PaymentCounts  `json:"payments"`
	Countries []CountryCount `json:"countries"`
	Daily     []DateCount    `json:"daily"`
}

type ReferrerRank struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Referrals    int64              `bson:"referrals" json:"referrals"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Email        string             `bson:"email" json:"email"`
	Team         TeamSide           `bson:"team,omitempty" json:"team,omitempty"`
	Position     int64              `bson:"position,omitempty" json:"position,omitempty"`
	ReferralCode string             `bson:"referral_code" json:"referral_code"`
}

type Dashboard struct {
	Total        int64          `json:"total"`
	Active       int64          `json:"active"`
	Pending      int64          `json:"pending"`
	Packages     PackageCounts  `json:"packages"`
	Teams        TeamCounts     `json:"teams"`
	Payments     PaymentCounts  `json:"payments"`
	Recent       []Enrollee     `json:"recent"`
	TopReferrers []ReferrerRank `json:"top_referrers"`
}

type TimelinePeriod string

const (
	PeriodDay   TimelinePeriod = "day"
	PeriodWeek  TimelinePeriod = "week"
	PeriodMonth TimelinePeriod = "month"
	PeriodYear  TimelinePeriod = "year"
)

type TeamPackageCount struct {
	Team    TeamSide    `json:"team"`
	Package PackageTier `json:"package"`
	Count   int64       `json:"count"`
}

type TeamStatusCount struct {
	Team   TeamSide       `json:"team"`
	Status EnrolleeStatus `json:"status"`
	Count  int64          `json:"count"`
}

type TeamDateCount struct {
	Date  string   `json:"date"`
	Team  TeamSide `json:"team"`
	Count int64    `json:"count"`
}

type TeamBreakdown struct {
	ByPackage []TeamPackageCount `json:"by_package"`
	ByStatus  []TeamStatusCount  `json:"by_status"`
	Growth    []TeamDateCount    `json:"growth"`
}

type PackageRevenue struct {
	Package PackageTier `bson:"_id" json:"package"`
	Revenue float64     `bson:"revenue" json:"revenue"`
}

type PackageMonthCount struct {
	Month   string      `json:"month"`
	Package PackageTier `json:"package"`
	Count   int64       `json:"count"`
}

type PackageReport struct {
	Distribution PackageCounts       `json:"distribution"`
	Revenue      []PackageRevenue    `json:"revenue"`
	Trend        []PackageMonthCount `json:"trend"`
}

type PackageLeader struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FirstName string             `bson:"first_name" json:"first_name"`
	LastName  string             `bson:"last_name" json:"last_name"`
	Email     string             `bson:"email" json:"email"`
	Position  int64              `bson:"position" json:"position"`
	Team      TeamSide           `bson:"team" json:"team"`
}

type Leaderboard struct {
	TopReferrers   []ReferrerRank                  `json:"top_referrers"`
	PackageLeaders map[PackageTier][]PackageLeader `json:"package_leaders"`
}

type ReferralStats struct {
	Total           int64   `json:"total"`
	Pending         int64   `json:"pending"`
	Completed       int64   `json:"completed"`
	Cancelled       int64   `json:"cancelled"`
	TotalCommission float64 `json:"total_commission"`
}
