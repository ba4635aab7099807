package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func strptr(s string) *string { return &s }

func TestIncludeModeMatchesSubstring(t *testing.T) {
	f, err := NewFacilityFilter(FilterInclude, []string{"RESTAURANT"}, nil)
	require.NoError(t, err)

	assert.True(t, f.Include(strptr("Restaurant")))
	assert.True(t, f.Include(strptr("RESTAURANT/GROCERY")))
	assert.True(t, f.Include(strptr("Mobile restaurant vendor")))
	assert.False(t, f.Include(strptr("Grocery Store")))
	assert.False(t, f.Include(strptr("Bakery")))
}

func TestIncludeModeNullTypeRejected(t *testing.T) {
	f, err := NewFacilityFilter(FilterInclude, []string{"RESTAURANT"}, nil)
	require.NoError(t, err)

	assert.False(t, f.Include(nil))
}

func TestIncludeModeMultipleKeywords(t *testing.T) {
	f, err := NewFacilityFilter(FilterInclude, []string{"RESTAURANT", "BAKERY"}, nil)
	require.NoError(t, err)

	assert.True(t, f.Include(strptr("bakery")))
	assert.True(t, f.Include(strptr("Restaurant")))
	assert.False(t, f.Include(strptr("Daycare")))
}

func TestExcludeModeDenylistIsExactAndCaseSensitive(t *testing.T) {
	f, err := NewFacilityFilter(FilterExclude, nil, []string{"Daycare (2 - 6 Years)"})
	require.NoError(t, err)

	assert.False(t, f.Include(strptr("Daycare (2 - 6 Years)")))
	assert.True(t, f.Include(strptr("daycare (2 - 6 years)")))
	assert.True(t, f.Include(strptr("Daycare")))
	assert.True(t, f.Include(strptr("Restaurant")))
}

func TestExcludeModeNullTypePasses(t *testing.T) {
	f, err := NewFacilityFilter(FilterExclude, nil, []string{"Daycare"})
	require.NoError(t, err)

	assert.True(t, f.Include(nil))
}

func TestFilterConfigValidation(t *testing.T) {
	_, err := NewFacilityFilter(FilterInclude, nil, nil)
	assert.Error(t, err)

	_, err = NewFacilityFilter("both", nil, nil)
	assert.Error(t, err)

	_, err = NewFacilityFilter(FilterExclude, nil, nil)
	assert.NoError(t, err)
}
