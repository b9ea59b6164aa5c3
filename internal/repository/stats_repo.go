package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	dayFormat   = "%Y-%m-%d"
	hourFormat  = "%Y-%m-%d %H:00"
	monthFormat = "%Y-%m"

	topCountries         = 10
	recentEnrollees      = 10
	dashboardReferrers   = 5
	leaderboardReferrers = 20
	packageLeaderSize    = 5
)

// StatsRepository runs the read-only reports. Every call aggregates fresh.
type StatsRepository interface {
	Summary(ctx context.Context, now time.Time) (*models.EnrolleeSummary, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	Timeline(ctx context.Context, period models.TimelinePeriod, now time.Time) ([]models.DateCount, error)
	Teams(ctx context.Context, now time.Time) (*models.TeamBreakdown, error)
	Packages(ctx context.Context, now time.Time) (*models.PackageReport, error)
	Leaderboard(ctx context.Context) (*models.Leaderboard, error)
}

type mongoStatsRepo struct {
	enrollees          *mongo.Collection
	referrals          *mongo.Collection
	enrolleeCollection string
}

func NewMongoStatsRepo(db *mongo.Database, enrolleeCollection, referralCollection string) StatsRepository {
	return &mongoStatsRepo{
		enrollees:          db.Collection(enrolleeCollection),
		referrals:          db.Collection(referralCollection),
		enrolleeCollection: enrolleeCollection,
	}
}

// TimelineWindow maps a period to its $dateToString format and the start of
// the lookback window. Days are cut at UTC midnight.
func TimelineWindow(period models.TimelinePeriod, now time.Time) (string, time.Time) {
	now = now.UTC()
	y, m, d := now.Date()
	switch period {
	case models.PeriodDay:
		return hourFormat, time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC)
	case models.PeriodWeek:
		return dayFormat, time.Date(y, m, d-7, 0, 0, 0, 0, time.UTC)
	case models.PeriodMonth:
		return dayFormat, time.Date(y, m-1, d, 0, 0, 0, 0, time.UTC)
	case models.PeriodYear:
		return monthFormat, time.Date(y-1, m, d, 0, 0, 0, 0, time.UTC)
	default:
		return dayFormat, time.Date(y, m, d-30, 0, 0, 0, 0, time.UTC)
	}
}

func monthsAgo(now time.Time, n int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m-time.Month(n), d, 0, 0, 0, 0, time.UTC)
}

type keyCount struct {
	Key   any   `bson:"_id"`
	Count int64 `bson:"count"`
}

type countRow struct {
	Count int64 `bson:"count"`
}

func countBy(expr any) bson.A {
	return bson.A{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: expr},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

func sinceStage(start time.Time) bson.D {
	return bson.D{{Key: "$match", Value: bson.D{{Key: "created_at", Value: bson.D{{Key: "$gte", Value: start}}}}}}
}

func dateBucket(format string) bson.D {
	return bson.D{{Key: "$dateToString", Value: bson.D{
		{Key: "format", Value: format},
		{Key: "date", Value: "$created_at"},
		{Key: "timezone", Value: "UTC"},
	}}}
}

func (r *mongoStatsRepo) facet(ctx context.Context, stages bson.D, out any) error {
	cur, err := r.enrollees.Aggregate(ctx, mongo.Pipeline{{{Key: "$facet", Value: stages}}})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return err
		}
		return errors.New("facet returned no document")
	}
	return cur.Decode(out)
}

type summaryFacets struct {
	Total     []countRow            `bson:"total"`
	Statuses  []keyCount            `bson:"statuses"`
	Packages  []keyCount            `bson:"packages"`
	Teams     []keyCount            `bson:"teams"`
	Payments  []keyCount            `bson:"payments"`
	Countries []models.CountryCount `bson:"countries"`
	Daily     []models.DateCount    `bson:"daily"`
}

func (r *mongoStatsRepo) Summary(ctx context.Context, now time.Time) (*models.EnrolleeSummary, error) {
	stages := bson.D{
		{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "count"}}}},
		{Key: "statuses", Value: countBy("$status")},
		{Key: "packages", Value: countBy("$selected_package")},
		{Key: "teams", Value: countBy("$team")},
		{Key: "payments", Value: countBy("$payment_collected")},
		{Key: "countries", Value: append(countBy("$address.country"),
			bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
			bson.D{{Key: "$limit", Value: topCountries}},
		)},
		{Key: "daily", Value: bson.A{
			sinceStage(monthsAgo(now, 1)),
			countBy(dateBucket(dayFormat))[0],
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		}},
	}
	var f summaryFacets
	if err := r.facet(ctx, stages, &f); err != nil {
		return nil, err
	}
	return foldSummary(f), nil
}

func foldSummary(f summaryFacets) *models.EnrolleeSummary {
	out := &models.EnrolleeSummary{
		Countries: nonNil(f.Countries),
		Daily:     nonNil(f.Daily),
	}
	if len(f.Total) > 0 {
		out.Total = f.Total[0].Count
	}
	for _, kc := range f.Statuses {
		out.Statuses.Add(models.EnrolleeStatus(keyString(kc.Key)), kc.Count)
	}
	for _, kc := range f.Packages {
		out.Packages.Add(models.PackageTier(keyString(kc.Key)), kc.Count)
	}
	for _, kc := range f.Teams {
		out.Teams.Add(models.TeamSide(keyString(kc.Key)), kc.Count)
	}
	out.Payments = foldPayments(f.Payments)
	return out
}

func foldPayments(rows []keyCount) models.PaymentCounts {
	var pc models.PaymentCounts
	for _, kc := range rows {
		if paid, ok := kc.Key.(bool); ok && paid {
			pc.Paid += kc.Count
		} else {
			pc.Unpaid += kc.Count
		}
	}
	return pc
}

func keyString(v any) string {
	s, _ := v.(string)
	return s
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

type dashboardFacets struct {
	Total    []countRow        `bson:"total"`
	Statuses []keyCount        `bson:"statuses"`
	Packages []keyCount        `bson:"packages"`
	Teams    []keyCount        `bson:"teams"`
	Payments []keyCount        `bson:"payments"`
	Recent   []models.Enrollee `bson:"recent"`
}

func (r *mongoStatsRepo) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	stages := bson.D{
		{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "count"}}}},
		{Key: "statuses", Value: countBy("$status")},
		{Key: "packages", Value: countBy("$selected_package")},
		{Key: "teams", Value: countBy("$team")},
		{Key: "payments", Value: countBy("$payment_collected")},
		{Key: "recent", Value: bson.A{
			bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
			bson.D{{Key: "$limit", Value: recentEnrollees}},
		}},
	}
	var f dashboardFacets
	if err := r.facet(ctx, stages, &f); err != nil {
		return nil, err
	}
	top, err := r.topReferrers(ctx, dashboardReferrers)
	if err != nil {
		return nil, err
	}
	return foldDashboard(f, top), nil
}

func foldDashboard(f dashboardFacets, top []models.ReferrerRank) *models.Dashboard {
	out := &models.Dashboard{
		Recent:       nonNil(f.Recent),
		TopReferrers: nonNil(top),
	}
	if len(f.Total) > 0 {
		out.Total = f.Total[0].Count
	}
	var statuses models.StatusCounts
	for _, kc := range f.Statuses {
		statuses.Add(models.EnrolleeStatus(keyString(kc.Key)), kc.Count)
	}
	out.Active = statuses.Active
	out.Pending = statuses.Pending
	for _, kc := range f.Packages {
		out.Packages.Add(models.PackageTier(keyString(kc.Key)), kc.Count)
	}
	for _, kc := range f.Teams {
		out.Teams.Add(models.TeamSide(keyString(kc.Key)), kc.Count)
	}
	out.Payments = foldPayments(f.Payments)
	return out
}

// topReferrers ranks referrers by edge count and joins their identity.
func (r *mongoStatsRepo) topReferrers(ctx context.Context, limit int) ([]models.ReferrerRank, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$referrer"},
			{Key: "referrals", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "referrals", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: r.enrolleeCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "referrer"},
		}}},
		{{Key: "$unwind", Value: "$referrer"}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "referrals", Value: 1},
			{Key: "first_name", Value: "$referrer.first_name"},
			{Key: "last_name", Value: "$referrer.last_name"},
			{Key: "email", Value: "$referrer.email"},
			{Key: "team", Value: "$referrer.team"},
			{Key: "position", Value: "$referrer.position"},
			{Key: "referral_code", Value: "$referrer.referral_code"},
		}}},
	}
	cur, err := r.referrals.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ReferrerRank{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoStatsRepo) Timeline(ctx context.Context, period models.TimelinePeriod, now time.Time) ([]models.DateCount, error) {
	format, start := TimelineWindow(period, now)
	pipeline := mongo.Pipeline{
		sinceStage(start),
		countBy(dateBucket(format))[0].(bson.D),
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := r.enrollees.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.DateCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type teamPackageRow struct {
	ID struct {
		Team    models.TeamSide    `bson:"team"`
		Package models.PackageTier `bson:"package"`
	} `bson:"_id"`
	Count int64 `bson:"count"`
}

type teamStatusRow struct {
	ID struct {
		Team   models.TeamSide       `bson:"team"`
		Status models.EnrolleeStatus `bson:"status"`
	} `bson:"_id"`
	Count int64 `bson:"count"`
}

type teamDateRow struct {
	ID struct {
		Date string          `bson:"date"`
		Team models.TeamSide `bson:"team"`
	} `bson:"_id"`
	Count int64 `bson:"count"`
}

type teamFacets struct {
	ByPackage []teamPackageRow `bson:"by_package"`
	ByStatus  []teamStatusRow  `bson:"by_status"`
	Growth    []teamDateRow    `bson:"growth"`
}

func (r *mongoStatsRepo) Teams(ctx context.Context, now time.Time) (*models.TeamBreakdown, error) {
	stages := bson.D{
		{Key: "by_package", Value: append(
			countBy(bson.D{{Key: "team", Value: "$team"}, {Key: "package", Value: "$selected_package"}}),
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.team", Value: 1}, {Key: "_id.package", Value: 1}}}},
		)},
		{Key: "by_status", Value: append(
			countBy(bson.D{{Key: "team", Value: "$team"}, {Key: "status", Value: "$status"}}),
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.team", Value: 1}, {Key: "_id.status", Value: 1}}}},
		)},
		{Key: "growth", Value: bson.A{
			sinceStage(monthsAgo(now, 1)),
			countBy(bson.D{{Key: "date", Value: dateBucket(dayFormat)}, {Key: "team", Value: "$team"}})[0],
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.date", Value: 1}, {Key: "_id.team", Value: 1}}}},
		}},
	}
	var f teamFacets
	if err := r.facet(ctx, stages, &f); err != nil {
		return nil, err
	}
	return foldTeams(f), nil
}

func foldTeams(f teamFacets) *models.TeamBreakdown {
	out := &models.TeamBreakdown{
		ByPackage: make([]models.TeamPackageCount, 0, len(f.ByPackage)),
		ByStatus:  make([]models.TeamStatusCount, 0, len(f.ByStatus)),
		Growth:    make([]models.TeamDateCount, 0, len(f.Growth)),
	}
	for _, row := range f.ByPackage {
		out.ByPackage = append(out.ByPackage, models.TeamPackageCount{Team: row.ID.Team, Package: row.ID.Package, Count: row.Count})
	}
	for _, row := range f.ByStatus {
		out.ByStatus = append(out.ByStatus, models.TeamStatusCount{Team: row.ID.Team, Status: row.ID.Status, Count: row.Count})
	}
	for _, row := range f.Growth {
		out.Growth = append(out.Growth, models.TeamDateCount{Date: row.ID.Date, Team: row.ID.Team, Count: row.Count})
	}
	return out
}

type packageMonthRow struct {
	ID struct {
		Month   string             `bson:"month"`
		Package models.PackageTier `bson:"package"`
	} `bson:"_id"`
	Count int64 `bson:"count"`
}

type packageFacets struct {
	Distribution []keyCount              `bson:"distribution"`
	Revenue      []models.PackageRevenue `bson:"revenue"`
	Trend        []packageMonthRow       `bson:"trend"`
}

func (r *mongoStatsRepo) Packages(ctx context.Context, now time.Time) (*models.PackageReport, error) {
	stages := bson.D{
		{Key: "distribution", Value: countBy("$selected_package")},
		{Key: "revenue", Value: bson.A{
			bson.D{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$selected_package"},
				{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$package_price"}}},
			}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		}},
		{Key: "trend", Value: bson.A{
			sinceStage(monthsAgo(now, 3)),
			countBy(bson.D{{Key: "month", Value: dateBucket(monthFormat)}, {Key: "package", Value: "$selected_package"}})[0],
			bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.month", Value: 1}, {Key: "_id.package", Value: 1}}}},
		}},
	}
	var f packageFacets
	if err := r.facet(ctx, stages, &f); err != nil {
		return nil, err
	}
	return foldPackages(f), nil
}

func foldPackages(f packageFacets) *models.PackageReport {
	out := &models.PackageReport{
		Revenue: nonNil(f.Revenue),
		Trend:   make([]models.PackageMonthCount, 0, len(f.Trend)),
	}
	for _, kc := range f.Distribution {
		out.Distribution.Add(models.PackageTier(keyString(kc.Key)), kc.Count)
	}
	for _, row := range f.Trend {
		out.Trend = append(out.Trend, models.PackageMonthCount{Month: row.ID.Month, Package: row.ID.Package, Count: row.Count})
	}
	return out
}

type packageLeadersRow struct {
	Package models.PackageTier     `bson:"_id"`
	Top     []models.PackageLeader `bson:"top"`
}

func (r *mongoStatsRepo) Leaderboard(ctx context.Context) (*models.Leaderboard, error) {
	top, err := r.topReferrers(ctx, leaderboardReferrers)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "position", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$selected_package"},
			{Key: "enrollees", Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "_id", Value: "$_id"},
				{Key: "first_name", Value: "$first_name"},
				{Key: "last_name", Value: "$last_name"},
				{Key: "email", Value: "$email"},
				{Key: "position", Value: "$position"},
				{Key: "team", Value: "$team"},
			}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "top", Value: bson.D{{Key: "$slice", Value: bson.A{"$enrollees", packageLeaderSize}}}},
		}}},
	}
	cur, err := r.enrollees.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []packageLeadersRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return foldLeaderboard(top, rows), nil
}

// foldLeaderboard always returns an entry per known tier.
func foldLeaderboard(top []models.ReferrerRank, rows []packageLeadersRow) *models.Leaderboard {
	out := &models.Leaderboard{
		TopReferrers:   nonNil(top),
		PackageLeaders: make(map[models.PackageTier][]models.PackageLeader, len(models.Packages)),
	}
	for _, p := range models.Packages {
		out.PackageLeaders[p] = []models.PackageLeader{}
	}
	for _, row := range rows {
		if !row.Package.Valid() {
			continue
		}
		out.PackageLeaders[row.Package] = nonNil(row.Top)
	}
	return out
}
