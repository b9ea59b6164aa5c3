package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestTimelineWindow(t *testing.T) {
	now := time.Date(2026, time.March, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		period models.TimelinePeriod
		format string
		start  time.Time
	}{
		{models.PeriodDay, "%Y-%m-%d %H:00", time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)},
		{models.PeriodWeek, "%Y-%m-%d", time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)},
		{models.PeriodMonth, "%Y-%m-%d", time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)},
		{models.PeriodYear, "%Y-%m", time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{models.TimelinePeriod(""), "%Y-%m-%d", time.Date(2026, time.February, 13, 0, 0, 0, 0, time.UTC)},
		{models.TimelinePeriod("decade"), "%Y-%m-%d", time.Date(2026, time.February, 13, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			format, start := TimelineWindow(tt.period, now)
			assert.Equal(t, tt.format, format)
			assert.True(t, tt.start.Equal(start), "start = %s, want %s", start, tt.start)
		})
	}
}

func TestTimelineWindowNormalisesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 05:00 on the 2nd in UTC+10 is 19:00 on the 1st in UTC
	now := time.Date(2026, time.June, 2, 5, 0, 0, 0, loc)

	_, start := TimelineWindow(models.PeriodDay, now)
	assert.True(t, time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC).Equal(start))
}

func TestFoldSummaryPackageCountsMatchTotal(t *testing.T) {
	f := summaryFacets{
		Total:    []countRow{{Count: 6}},
		Statuses: []keyCount{{Key: "pending", Count: 4}, {Key: "active", Count: 2}},
		Packages: []keyCount{{Key: "starter", Count: 3}, {Key: "elite", Count: 2}, {Key: "pro", Count: 1}},
		Teams:    []keyCount{{Key: "left", Count: 2}, {Key: "none", Count: 3}, {Key: nil, Count: 1}},
		Payments: []keyCount{{Key: true, Count: 2}, {Key: false, Count: 4}},
	}
	s := foldSummary(f)

	assert.EqualValues(t, 6, s.Total)
	assert.Equal(t, s.Total, s.Packages.Total())
	assert.Equal(t, models.StatusCounts{Pending: 4, Active: 2}, s.Statuses)
	assert.Equal(t, models.TeamCounts{Left: 2, None: 4}, s.Teams)
	assert.Equal(t, models.PaymentCounts{Paid: 2, Unpaid: 4}, s.Payments)
	assert.NotNil(t, s.Countries)
	assert.NotNil(t, s.Daily)
}

func TestFoldSummaryEmptyCollection(t *testing.T) {
	s := foldSummary(summaryFacets{})
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Packages.Total())
	assert.Empty(t, s.Daily)
}

func TestFoldDashboard(t *testing.T) {
	top := []models.ReferrerRank{{ID: primitive.NewObjectID(), Referrals: 3}}
	f := dashboardFacets{
		Total:    []countRow{{Count: 3}},
		Statuses: []keyCount{{Key: "active", Count: 1}, {Key: "pending", Count: 1}, {Key: "cancelled", Count: 1}},
		Packages: []keyCount{{Key: "pro", Count: 3}},
		Teams:    []keyCount{{Key: "right", Count: 3}},
		Payments: []keyCount{{Key: true, Count: 1}, {Key: false, Count: 2}},
	}
	d := foldDashboard(f, top)

	assert.EqualValues(t, 3, d.Total)
	assert.EqualValues(t, 1, d.Active)
	assert.EqualValues(t, 1, d.Pending)
	assert.Equal(t, models.PackageCounts{Pro: 3}, d.Packages)
	assert.Equal(t, models.TeamCounts{Right: 3}, d.Teams)
	assert.Equal(t, models.PaymentCounts{Paid: 1, Unpaid: 2}, d.Payments)
	assert.Len(t, d.TopReferrers, 1)
	assert.NotNil(t, d.Recent)
}

func TestFoldTeams(t *testing.T) {
	var row teamPackageRow
	row.ID.Team = models.TeamLeft
	row.ID.Package = models.PackageElite
	row.Count = 2

	var growth teamDateRow
	growth.ID.Date = "2026-03-01"
	growth.ID.Team = models.TeamRight
	growth.Count = 1

	out := foldTeams(teamFacets{ByPackage: []teamPackageRow{row}, Growth: []teamDateRow{growth}})
	require.Len(t, out.ByPackage, 1)
	assert.Equal(t, models.TeamPackageCount{Team: models.TeamLeft, Package: models.PackageElite, Count: 2}, out.ByPackage[0])
	assert.Empty(t, out.ByStatus)
	assert.Equal(t, []models.TeamDateCount{{Date: "2026-03-01", Team: models.TeamRight, Count: 1}}, out.Growth)
}

func TestFoldPackages(t *testing.T) {
	var trend packageMonthRow
	trend.ID.Month = "2026-02"
	trend.ID.Package = models.PackageStarter
	trend.Count = 4

	out := foldPackages(packageFacets{
		Distribution: []keyCount{{Key: "starter", Count: 4}, {Key: "pro", Count: 1}},
		Revenue:      []models.PackageRevenue{{Package: models.PackageStarter, Revenue: 700}},
		Trend:        []packageMonthRow{trend},
	})
	assert.Equal(t, models.PackageCounts{Starter: 4, Pro: 1}, out.Distribution)
	assert.Equal(t, 700.0, out.Revenue[0].Revenue)
	assert.Equal(t, "2026-02", out.Trend[0].Month)
}

func TestFoldLeaderboardHasEveryTier(t *testing.T) {
	rows := []packageLeadersRow{
		{Package: models.PackageElite, Top: []models.PackageLeader{{Position: 2}, {Position: 7}}},
		{Package: models.PackageTier("legacy"), Top: []models.PackageLeader{{Position: 1}}},
	}
	lb := foldLeaderboard(nil, rows)

	assert.NotNil(t, lb.TopReferrers)
	assert.Len(t, lb.PackageLeaders, 3)
	assert.Empty(t, lb.PackageLeaders[models.PackageStarter])
	assert.Len(t, lb.PackageLeaders[models.PackageElite], 2)
	assert.Empty(t, lb.PackageLeaders[models.PackagePro])
}

func TestFoldReferralStats(t *testing.T) {
	out := foldReferralStats([]referralStatusRow{
		{Status: models.ReferralCompleted, Count: 5, Commission: 50},
		{Status: models.ReferralPending, Count: 1},
		{Status: models.ReferralCancelled, Count: 2, Commission: 5.5},
	})
	assert.Equal(t, &models.ReferralStats{Total: 8, Pending: 1, Completed: 5, Cancelled: 2, TotalCommission: 55.5}, out)
}

// aggregateOf pops the next started command and returns its target and
// pipeline stage names in order.
func aggregateOf(mt *mtest.T) (string, bson.Raw, []string) {
	mt.Helper()
	ev := mt.GetStartedEvent()
	require.NotNil(mt, ev)
	require.Equal(mt, "aggregate", ev.CommandName)
	pipeline := ev.Command.Lookup("pipeline").Array()
	values, err := pipeline.Values()
	require.NoError(mt, err)
	names := make([]string, 0, len(values))
	for _, v := range values {
		elems, err := v.Document().Elements()
		require.NoError(mt, err)
		names = append(names, elems[0].Key())
	}
	return ev.Command.Lookup("aggregate").StringValue(), ev.Command, names
}

func facetKeys(mt *mtest.T, cmd bson.Raw) []string {
	mt.Helper()
	elems, err := cmd.Lookup("pipeline", "0", "$facet").Document().Elements()
	require.NoError(mt, err)
	keys := make([]string, 0, len(elems))
	for _, e := range elems {
		keys = append(keys, e.Key())
	}
	return keys
}

func kc(key any, n int64) bson.D {
	return bson.D{{Key: "_id", Value: key}, {Key: "count", Value: n}}
}

func TestStatsRepositoryPipelines(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	now := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
	amy := primitive.NewObjectID()

	referrerBatch := func() bson.D {
		return mtest.CreateCursorResponse(0, "konga.referrals", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: amy},
			{Key: "referrals", Value: int64(3)},
			{Key: "first_name", Value: "Amy"},
			{Key: "last_name", Value: "Adams"},
			{Key: "email", Value: "amy@example.com"},
			{Key: "position", Value: int64(1)},
			{Key: "referral_code", Value: "AMAD-7K2Q9X"},
		})
	}
	assertReferrerPipeline := func(mt *mtest.T, limit int64) {
		coll, cmd, stages := aggregateOf(mt)
		assert.Equal(mt, "referrals", coll)
		assert.Equal(mt, []string{"$group", "$sort", "$limit", "$lookup", "$unwind", "$project"}, stages)
		assert.Equal(mt, limit, cmd.Lookup("pipeline", "2", "$limit").AsInt64())
		assert.Equal(mt, "enrollees", cmd.Lookup("pipeline", "3", "$lookup", "from").StringValue())
		assert.Equal(mt, int32(-1), cmd.Lookup("pipeline", "1", "$sort", "referrals").Int32())
	}

	mt.Run("summary", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "konga.enrollees", mtest.FirstBatch, bson.D{
			{Key: "total", Value: bson.A{bson.D{{Key: "count", Value: int64(4)}}}},
			{Key: "statuses", Value: bson.A{kc("active", 3), kc("pending", 1)}},
			{Key: "packages", Value: bson.A{kc("pro", 1), kc("elite", 3)}},
			{Key: "teams", Value: bson.A{kc("left", 2), kc(nil, 2)}},
			{Key: "payments", Value: bson.A{kc(true, 3), kc(nil, 1)}},
			{Key: "countries", Value: bson.A{kc("NG", 3), kc("US", 1)}},
			{Key: "daily", Value: bson.A{kc("2026-10-13", 4)}},
		}))

		s, err := repo.Summary(ctx, now)
		require.NoError(mt, err)
		assert.EqualValues(mt, 4, s.Total)
		assert.Equal(mt, models.StatusCounts{Active: 3, Pending: 1}, s.Statuses)
		assert.Equal(mt, s.Total, s.Packages.Total())
		assert.Equal(mt, models.TeamCounts{Left: 2, None: 2}, s.Teams)
		assert.Equal(mt, models.PaymentCounts{Paid: 3, Unpaid: 1}, s.Payments)
		assert.Equal(mt, []models.CountryCount{{Country: "NG", Count: 3}, {Country: "US", Count: 1}}, s.Countries)
		assert.Equal(mt, []models.DateCount{{Bucket: "2026-10-13", Count: 4}}, s.Daily)

		coll, cmd, stages := aggregateOf(mt)
		assert.Equal(mt, "enrollees", coll)
		assert.Equal(mt, []string{"$facet"}, stages)
		assert.Equal(mt, []string{"total", "statuses", "packages", "teams", "payments", "countries", "daily"}, facetKeys(mt, cmd))
		assert.Equal(mt, int64(topCountries), cmd.Lookup("pipeline", "0", "$facet", "countries", "2", "$limit").AsInt64())
		since := cmd.Lookup("pipeline", "0", "$facet", "daily", "0", "$match", "created_at", "$gte").Time()
		assert.True(mt, time.Date(2026, time.September, 14, 0, 0, 0, 0, time.UTC).Equal(since), "daily window starts %s", since)
	})

	mt.Run("dashboard", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "konga.enrollees", mtest.FirstBatch, bson.D{
				{Key: "total", Value: bson.A{bson.D{{Key: "count", Value: int64(2)}}}},
				{Key: "statuses", Value: bson.A{kc("active", 1), kc("pending", 1)}},
				{Key: "packages", Value: bson.A{kc("starter", 2)}},
				{Key: "teams", Value: bson.A{kc("right", 2)}},
				{Key: "payments", Value: bson.A{kc(false, 2)}},
				{Key: "recent", Value: bson.A{bson.D{{Key: "_id", Value: amy}, {Key: "first_name", Value: "Amy"}, {Key: "position", Value: int64(1)}}}},
			}),
			referrerBatch(),
		)

		d, err := repo.Dashboard(ctx)
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, d.Total)
		assert.EqualValues(mt, 1, d.Active)
		assert.EqualValues(mt, 1, d.Pending)
		assert.Equal(mt, models.PaymentCounts{Unpaid: 2}, d.Payments)
		require.Len(mt, d.Recent, 1)
		assert.Equal(mt, "Amy", d.Recent[0].FirstName)
		require.Len(mt, d.TopReferrers, 1)
		assert.EqualValues(mt, 3, d.TopReferrers[0].Referrals)
		assert.Equal(mt, "AMAD-7K2Q9X", d.TopReferrers[0].ReferralCode)

		_, cmd, _ := aggregateOf(mt)
		assert.Equal(mt, []string{"total", "statuses", "packages", "teams", "payments", "recent"}, facetKeys(mt, cmd))
		assert.Equal(mt, int64(recentEnrollees), cmd.Lookup("pipeline", "0", "$facet", "recent", "1", "$limit").AsInt64())
		assertReferrerPipeline(mt, dashboardReferrers)
	})

	mt.Run("timeline", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "konga.enrollees", mtest.FirstBatch,
			kc("2026-10-13 08:00", 2), kc("2026-10-14 09:00", 1)))

		got, err := repo.Timeline(ctx, models.PeriodDay, now)
		require.NoError(mt, err)
		assert.Equal(mt, []models.DateCount{{Bucket: "2026-10-13 08:00", Count: 2}, {Bucket: "2026-10-14 09:00", Count: 1}}, got)

		_, cmd, stages := aggregateOf(mt)
		assert.Equal(mt, []string{"$match", "$group", "$sort"}, stages)
		since := cmd.Lookup("pipeline", "0", "$match", "created_at", "$gte").Time()
		assert.True(mt, time.Date(2026, time.October, 13, 0, 0, 0, 0, time.UTC).Equal(since))
		assert.Equal(mt, hourFormat, cmd.Lookup("pipeline", "1", "$group", "_id", "$dateToString", "format").StringValue())
	})

	mt.Run("timeline on empty collection", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "konga.enrollees", mtest.FirstBatch))

		got, err := repo.Timeline(ctx, models.PeriodWeek, now)
		require.NoError(mt, err)
		assert.NotNil(mt, got)
		assert.Empty(mt, got)
	})

	mt.Run("teams", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "konga.enrollees", mtest.FirstBatch, bson.D{
			{Key: "by_package", Value: bson.A{bson.D{
				{Key: "_id", Value: bson.D{{Key: "team", Value: "left"}, {Key: "package", Value: "pro"}}},
				{Key: "count", Value: int64(2)},
			}}},
			{Key: "by_status", Value: bson.A{bson.D{
				{Key: "_id", Value: bson.D{{Key: "team", Value: "right"}, {Key: "status", Value: "active"}}},
				{Key: "count", Value: int64(1)},
			}}},
			{Key: "growth", Value: bson.A{bson.D{
				{Key: "_id", Value: bson.D{{Key: "date", Value: "2026-10-01"}, {Key: "team", Value: "left"}}},
				{Key: "count", Value: int64(2)},
			}}},
		}))

		tb, err := repo.Teams(ctx, now)
		require.NoError(mt, err)
		assert.Equal(mt, []models.TeamPackageCount{{Team: models.TeamLeft, Package: models.PackagePro, Count: 2}}, tb.ByPackage)
		assert.Equal(mt, []models.TeamStatusCount{{Team: models.TeamRight, Status: models.StatusActive, Count: 1}}, tb.ByStatus)
		assert.Equal(mt, []models.TeamDateCount{{Date: "2026-10-01", Team: models.TeamLeft, Count: 2}}, tb.Growth)

		_, cmd, _ := aggregateOf(mt)
		assert.Equal(mt, []string{"by_package", "by_status", "growth"}, facetKeys(mt, cmd))
	})

	mt.Run("packages", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "konga.enrollees", mtest.FirstBatch, bson.D{
			{Key: "distribution", Value: bson.A{kc("starter", 2), kc("elite", 1)}},
			{Key: "revenue", Value: bson.A{
				bson.D{{Key: "_id", Value: "elite"}, {Key: "revenue", Value: 499.0}},
				bson.D{{Key: "_id", Value: "starter"}, {Key: "revenue", Value: 198.0}},
			}},
			{Key: "trend", Value: bson.A{bson.D{
				{Key: "_id", Value: bson.D{{Key: "month", Value: "2026-09"}, {Key: "package", Value: "starter"}}},
				{Key: "count", Value: int64(2)},
			}}},
		}))

		pr, err := repo.Packages(ctx, now)
		require.NoError(mt, err)
		assert.Equal(mt, models.PackageCounts{Starter: 2, Elite: 1}, pr.Distribution)
		assert.Equal(mt, []models.PackageRevenue{{Package: models.PackageElite, Revenue: 499}, {Package: models.PackageStarter, Revenue: 198}}, pr.Revenue)
		assert.Equal(mt, []models.PackageMonthCount{{Month: "2026-09", Package: models.PackageStarter, Count: 2}}, pr.Trend)

		_, cmd, _ := aggregateOf(mt)
		assert.Equal(mt, []string{"distribution", "revenue", "trend"}, facetKeys(mt, cmd))
		assert.Equal(mt, "$package_price", cmd.Lookup("pipeline", "0", "$facet", "revenue", "0", "$group", "revenue", "$sum").StringValue())
		since := cmd.Lookup("pipeline", "0", "$facet", "trend", "0", "$match", "created_at", "$gte").Time()
		assert.True(mt, time.Date(2026, time.July, 14, 0, 0, 0, 0, time.UTC).Equal(since))
	})

	mt.Run("leaderboard", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(
			referrerBatch(),
			mtest.CreateCursorResponse(0, "konga.enrollees", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "pro"},
				{Key: "top", Value: bson.A{
					bson.D{{Key: "_id", Value: amy}, {Key: "first_name", Value: "Amy"}, {Key: "position", Value: int64(1)}, {Key: "team", Value: "none"}},
				}},
			}),
		)

		lb, err := repo.Leaderboard(ctx)
		require.NoError(mt, err)
		require.Len(mt, lb.TopReferrers, 1)
		assert.Equal(mt, amy, lb.TopReferrers[0].ID)
		require.Len(mt, lb.PackageLeaders[models.PackagePro], 1)
		assert.EqualValues(mt, 1, lb.PackageLeaders[models.PackagePro][0].Position)
		assert.Empty(mt, lb.PackageLeaders[models.PackageStarter])
		assert.Empty(mt, lb.PackageLeaders[models.PackageElite])

		assertReferrerPipeline(mt, leaderboardReferrers)
		coll, cmd, stages := aggregateOf(mt)
		assert.Equal(mt, "enrollees", coll)
		assert.Equal(mt, []string{"$sort", "$group", "$project"}, stages)
		assert.Equal(mt, int32(1), cmd.Lookup("pipeline", "0", "$sort", "position").Int32())
		slice := cmd.Lookup("pipeline", "2", "$project", "top", "$slice").Array()
		assert.Equal(mt, "$enrollees", slice.Index(0).Value().StringValue())
		assert.Equal(mt, int64(packageLeaderSize), slice.Index(1).Value().AsInt64())
	})

	mt.Run("aggregate failure surfaces", func(mt *mtest.T) {
		repo := NewMongoStatsRepo(mt.DB, "enrollees", "referrals")
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Message: "interrupted at shutdown"}))

		_, err := repo.Summary(ctx, now)
		assert.Error(mt, err)
	})
}
