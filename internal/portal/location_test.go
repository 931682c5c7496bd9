package portal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portalerrors "yogaportal/internal/portal/errors"
	"yogaportal/pkg/events"
	"yogaportal/pkg/model"
	"yogaportal/pkg/storage"
)

func TestLocation_PersistsAcrossRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.portal.SetLocation(ctx, "geneva"))

	restarted := h.open(t)
	assert.Equal(t, "zurich", restarted.CurrentLocation().ID, "default before start")
	restarted.Start(ctx)
	assert.Equal(t, "geneva", restarted.CurrentLocation().ID)
}

func TestLocation_RestoreFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		stored []byte
		want   string
		kept   bool
	}{
		{name: "unknown id", stored: []byte(`"paris"`), want: "zurich", kept: true},
		{name: "corrupt value", stored: []byte(`{"id":`), want: "zurich"},
		{name: "slug casing", stored: []byte(`"Basel"`), want: "basel", kept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			require.NoError(t, h.store.Set(ctx, storage.KeyLocation, tt.stored))

			h.portal.Start(ctx)

			assert.Equal(t, tt.want, h.portal.CurrentLocation().ID)
			_, ok, _ := h.store.Get(ctx, storage.KeyLocation)
			assert.Equal(t, tt.kept, ok)
		})
	}
}

func TestSetLocation_UnknownIsRejected(t *testing.T) {
	h := newHarness(t)

	err := h.portal.SetLocation(context.Background(), "lugano")

	assert.ErrorIs(t, err, portalerrors.ErrUnknownLocation)
	assert.Equal(t, "zurich", h.portal.CurrentLocation().ID)
}

func TestNearestLocation(t *testing.T) {
	h := newHarness(t)

	loc, err := h.portal.NearestLocation(46.4312, 6.9107)
	require.NoError(t, err)
	assert.Equal(t, "lausanne", loc.ID)
	assert.Equal(t, "zurich", h.portal.CurrentLocation().ID, "lookup does not switch location")

	_, err = h.portal.NearestLocation(95, 6.9)
	assert.ErrorIs(t, err, portalerrors.ErrInvalidCoordinates)
}

func TestSetLocation_PublishesChange(t *testing.T) {
	h := newHarness(t)
	ch, cancel := h.bus.Subscribe(events.LocationChanged)
	defer cancel()

	require.NoError(t, h.portal.SetLocation(context.Background(), "bern"))

	select {
	case evt := <-ch:
		var loc model.Location
		require.NoError(t, json.Unmarshal(evt.Data, &loc))
		assert.Equal(t, "bern", loc.Slug)
	case <-time.After(time.Second):
		t.Fatal("no location.changed event")
	}
}

func TestFilters(t *testing.T) {
	h := newHarness(t)

	err := h.portal.SetFilters(model.SearchFilters{Styles: []string{" Vinyasa ", "vinyasa", "Hot Yoga"}, PriceMax: 40})
	require.NoError(t, err)
	assert.Equal(t, []string{"vinyasa", "hot-yoga"}, h.portal.Filters().Styles)

	err = h.portal.SetFilters(model.SearchFilters{PriceMin: 50, PriceMax: 10})
	require.Error(t, err)
	assert.Equal(t, 40.0, h.portal.Filters().PriceMax, "rejected filters leave the current ones")

	h.portal.ResetFilters()
	assert.True(t, h.portal.Filters().IsZero())
	assert.Len(t, h.portal.Locations(), 5)
}

func TestSnapshot_StateChangedAfterMutation(t *testing.T) {
	h := newHarness(t)
	ch, cancel := h.bus.Subscribe(events.StateChanged)
	defer cancel()

	require.NoError(t, h.portal.AddToCart(classItem("a", 12.5, 2)))

	select {
	case evt := <-ch:
		var st State
		require.NoError(t, json.Unmarshal(evt.Data, &st))
		assert.Equal(t, 25.0, st.CartTotal)
		assert.Equal(t, 2, st.CartCount)
	case <-time.After(time.Second):
		t.Fatal("no state.changed event")
	}

	h.portal.SetRealtimeStatus("connected")
	assert.Equal(t, "connected", h.portal.Snapshot().Realtime)
}
