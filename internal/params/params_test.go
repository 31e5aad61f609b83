package params

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_CloneIsIndependent(t *testing.T) {
	s := Set{"per_diem.rate": 100}
	c := s.Clone()
	c["per_diem.rate"] = 1

	assert.Equal(t, 100.0, s["per_diem.rate"])
	assert.NotNil(t, Set(nil).Clone())
}

func TestSet_MergeOverlays(t *testing.T) {
	base := Set{"a.x": 1, "a.y": 2}
	got := base.Merge(Set{"a.y": 3, "b.z": 4})

	assert.Equal(t, Set{"a.x": 1, "a.y": 3, "b.z": 4}, got)
	assert.Equal(t, 2.0, base["a.y"], "merge must not touch the receiver")
}

func TestSet_NamesSorted(t *testing.T) {
	s := Set{"quirks.cents_amount": 0, "mileage.tier1_rate": 0.58, "bonuses.five_day_amount": 0}
	assert.Equal(t, []string{"bonuses.five_day_amount", "mileage.tier1_rate", "quirks.cents_amount"}, s.Names())
}

func TestSet_Equal(t *testing.T) {
	assert.True(t, Set{"a.x": 1}.Equal(Set{"a.x": 1}))
	assert.False(t, Set{"a.x": 1}.Equal(Set{"a.x": 1.0000001}))
	assert.False(t, Set{"a.x": 1}.Equal(Set{"a.y": 1}))
	assert.False(t, Set{"a.x": 1}.Equal(Set{"a.x": 1, "a.y": 2}))
	assert.True(t, Set{"a.x": math.NaN()}.Equal(Set{"a.x": math.NaN()}))
}

func TestSplitAndWithPrefix(t *testing.T) {
	prefix, name, ok := Split(Join("receipts", "short_threshold"))
	require.True(t, ok)
	assert.Equal(t, "receipts", prefix)
	assert.Equal(t, "short_threshold", name)

	_, _, ok = Split("bare")
	assert.False(t, ok)

	s := Set{"mileage.tier1_rate": 0.58, "mileage.tier2_rate": 0.45, "per_diem.rate": 100}
	assert.Equal(t, Set{"mileage.tier1_rate": 0.58, "mileage.tier2_rate": 0.45}, s.WithPrefix("mileage"))
	assert.Empty(t, s.WithPrefix("quirks"))
}

func TestSet_CheckFinite(t *testing.T) {
	require.NoError(t, Set{"a.x": -5, "a.y": 0}.CheckFinite())

	err := Set{"a.x": 1, "a.y": math.Inf(1)}.CheckFinite()
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Contains(t, err.Error(), "a.y")

	assert.ErrorIs(t, Set{"a.x": math.NaN()}.CheckFinite(), ErrInvalidParameter)
}

func TestRange(t *testing.T) {
	r := Range{Lo: 50, Hi: 150}
	assert.Equal(t, 100.0, r.Width())
	assert.Equal(t, 50.0, r.Clamp(10))
	assert.Equal(t, 150.0, r.Clamp(1e9))
	assert.Equal(t, 75.0, r.Clamp(75))
	assert.True(t, r.Contains(50))
	assert.True(t, r.Contains(150))
	assert.False(t, r.Contains(150.0001))
}

func TestBounds_Validate(t *testing.T) {
	require.NoError(t, Bounds{"a.x": {Lo: 1, Hi: 1}}.Validate())
	assert.ErrorIs(t, Bounds{"a.x": {Lo: 2, Hi: 1}}.Validate(), ErrInvalidParameter)
	assert.ErrorIs(t, Bounds{"a.x": {Lo: math.NaN(), Hi: 1}}.Validate(), ErrInvalidParameter)
}

func TestDefaultBounds_ByName(t *testing.T) {
	b := DefaultBounds(Set{
		"per_diem.rate":              100,
		"receipts.short_retention":   0.5,
		"receipts.short_threshold":   75,
		"receipts.short_max_days":    3,
		"bonuses.five_day_trigger":   5,
		"bonuses.five_day_amount":    0,
		"mileage.tier1_limit":        100,
		"bonuses.efficiency_min_mpd": 180,
	})

	assert.Equal(t, Range{Lo: 50, Hi: 200}, b["per_diem.rate"])
	assert.Equal(t, Range{Lo: 0, Hi: 1}, b["receipts.short_retention"])
	assert.Equal(t, Range{Lo: 37.5, Hi: 150}, b["receipts.short_threshold"])
	assert.Equal(t, Range{Lo: 50, Hi: 200}, b["mileage.tier1_limit"])
	assert.Equal(t, Range{Lo: 90, Hi: 360}, b["bonuses.efficiency_min_mpd"])
	assert.Equal(t, Range{Lo: -50, Hi: 200}, b["bonuses.five_day_amount"])

	assert.NotContains(t, b, "receipts.short_max_days")
	assert.NotContains(t, b, "bonuses.five_day_trigger")
	for name, r := range b {
		assert.LessOrEqual(t, r.Lo, r.Hi, name)
	}
}
