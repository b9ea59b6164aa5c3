package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackageTierPrice(t *testing.T) {
	tests := []struct {
		tier  PackageTier
		price float64
		valid bool
	}{
		{PackageStarter, 175, true},
		{PackageElite, 350, true},
		{PackagePro, 700, true},
		{PackageTier("platinum"), 0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			assert.Equal(t, tt.price, tt.tier.Price())
			assert.Equal(t, tt.valid, tt.tier.Valid())
		})
	}
}

func TestPackageCountsFold(t *testing.T) {
	var pc PackageCounts
	pc.Add(PackageStarter, 3)
	pc.Add(PackagePro, 2)
	pc.Add(PackageElite, 1)
	pc.Add(PackageTier("unknown"), 9)

	assert.Equal(t, PackageCounts{Starter: 3, Elite: 1, Pro: 2}, pc)
	assert.EqualValues(t, 6, pc.Total())
}

func TestTeamCountsTreatsUnknownAsNone(t *testing.T) {
	var tc TeamCounts
	tc.Add(TeamLeft, 1)
	tc.Add(TeamSide(""), 2)
	tc.Add(TeamNone, 1)
	assert.Equal(t, TeamCounts{Left: 1, None: 3}, tc)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "JADO-AB12CD", NormalizeCode(" jado-ab12cd"))
	assert.Equal(t, "Elite", PackageElite.Title())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, EnrolleeStatus("gone").Valid())
	assert.True(t, TeamNone.Valid())
	assert.False(t, TeamSide("middle").Valid())
	assert.True(t, ReferralCancelled.Valid())
	assert.False(t, ReferralStatus("").Valid())
}
