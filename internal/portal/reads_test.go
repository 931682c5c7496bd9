package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yogaportal/pkg/events"
	"yogaportal/pkg/model"
)

func TestSearchClasses_CachedWithinTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q := model.ClassQuery{Location: "zurich", Style: "vinyasa"}

	first := h.portal.SearchClasses(ctx, q)
	require.Len(t, first, 1)

	h.clock.Advance(4 * time.Minute)
	h.portal.SearchClasses(ctx, q)
	assert.Equal(t, 1, h.market.Calls("SearchClasses"))

	h.clock.Advance(time.Minute + time.Second)
	h.portal.SearchClasses(ctx, q)
	assert.Equal(t, 2, h.market.Calls("SearchClasses"))
}

func TestSearchClasses_FreshBypassesCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q := model.ClassQuery{Location: "zurich"}

	h.portal.SearchClasses(ctx, q)
	h.portal.SearchClasses(ctx, q, Fresh())
	h.portal.SearchClasses(ctx, q)

	assert.Equal(t, 2, h.market.Calls("SearchClasses"))
}

func TestSearchClasses_DistinctParamsDistinctEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.portal.SearchClasses(ctx, model.ClassQuery{Location: "zurich"})
	h.portal.SearchClasses(ctx, model.ClassQuery{Location: "basel"})
	h.portal.SearchClasses(ctx, model.ClassQuery{Location: "zurich", Style: "Yin"})

	assert.Equal(t, 3, h.market.Calls("SearchClasses"))
}

func TestSearchClasses_UsesCurrentLocation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.portal.SetLocation(ctx, "bern"))

	assert.Empty(t, h.portal.SearchClasses(ctx, model.ClassQuery{}))
	assert.Equal(t, 1, h.market.Calls("SearchClasses"))
}

func TestReads_FailureReturnsEmptyAndIsNotCached(t *testing.T) {
	h := newHarness(t)
	h.market.readErr = errors.New("connection refused")
	ctx := context.Background()

	classes := h.portal.SearchClasses(ctx, model.ClassQuery{Location: "zurich"})
	require.NotNil(t, classes)
	assert.Empty(t, classes)

	studios := h.portal.GetStudios(ctx, model.StudioQuery{})
	require.NotNil(t, studios)
	assert.Empty(t, studios)

	assert.NotNil(t, h.portal.GetInstructors(ctx, model.InstructorQuery{}))
	assert.NotNil(t, h.portal.GetLocalEvents(ctx, model.EventQuery{}))
	assert.NotNil(t, h.portal.GetInstructorAvailability(ctx, "inst-1", "2026-05-02"))
	assert.NotNil(t, h.portal.GetStudioReviews(ctx, "studio-1"))
	assert.NotNil(t, h.portal.GetInstructorReviews(ctx, "inst-1"))

	h.market.readErr = nil
	h.portal.SearchClasses(ctx, model.ClassQuery{Location: "zurich"})
	assert.Equal(t, 2, h.market.Calls("SearchClasses"))
}

func TestSearchClasses_InvalidQueryMakesNoCall(t *testing.T) {
	h := newHarness(t)

	classes := h.portal.SearchClasses(context.Background(), model.ClassQuery{Location: "paris"})
	assert.Empty(t, classes)
	assert.Zero(t, h.market.Calls("SearchClasses"))
}

func TestGetInstructorAvailability_Cached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	slots := h.portal.GetInstructorAvailability(ctx, "inst-1", "2026-05-02")
	require.Len(t, slots, 1)
	h.portal.GetInstructorAvailability(ctx, "inst-1", "2026-05-02")
	h.portal.GetInstructorAvailability(ctx, "inst-1", "2026-05-03")

	assert.Equal(t, 2, h.market.Calls("InstructorAvailability"))
}

func TestInvalidatePushed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q := model.ClassQuery{Location: "zurich"}

	h.portal.SearchClasses(ctx, q)
	h.portal.GetInstructorAvailability(ctx, "inst-1", "2026-05-02")

	assert.Zero(t, h.portal.InvalidatePushed("studio.renamed"))
	assert.Equal(t, 1, h.portal.InvalidatePushed(events.AvailabilityUpdated))
	h.portal.SearchClasses(ctx, q)
	h.portal.GetInstructorAvailability(ctx, "inst-1", "2026-05-02")
	assert.Equal(t, 1, h.market.Calls("SearchClasses"), "class search still cached")
	assert.Equal(t, 2, h.market.Calls("InstructorAvailability"))

	assert.Equal(t, 1, h.portal.InvalidatePushed(events.BookingUpdated))
	assert.Zero(t, h.portal.InvalidatePushed(events.ClassUpdated))
	h.portal.SearchClasses(ctx, q)
	assert.Equal(t, 2, h.market.Calls("SearchClasses"))
}

func TestGetWeatherData_Synthetic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w := h.portal.GetWeatherData(ctx, 47.3769, 8.5417)
	require.NotNil(t, w)
	assert.True(t, w.Synthetic)
	assert.Contains(t, weatherConditions, w.Condition)

	again := h.portal.GetWeatherData(ctx, 47.3769, 8.5417, Fresh())
	assert.Equal(t, *w, *again)

	assert.Nil(t, h.portal.GetWeatherData(ctx, 123, 8))
	assert.Zero(t, h.market.Total())
}
