package locale

import (
	"testing"
)

func TestLocations_FixedSet(t *testing.T) {
	got := Locations()
	if len(got) != 5 {
		t.Fatalf("expected 5 locations, got %d", len(got))
	}

	got[0].Name = "mutated"
	if Locations()[0].Name == "mutated" {
		t.Errorf("Locations() must return a copy")
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
		found  bool
	}{
		{name: "by id", input: "zurich", wantID: "zurich", found: true},
		{name: "mixed case with spaces", input: "  Geneva ", wantID: "geneva", found: true},
		{name: "lausanne", input: "lausanne", wantID: "lausanne", found: true},
		{name: "unknown city", input: "lugano", found: false},
		{name: "empty", input: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := Find(tt.input)
			if ok != tt.found {
				t.Fatalf("Find(%q) found = %v, want %v", tt.input, ok, tt.found)
			}
			if ok && loc.ID != tt.wantID {
				t.Errorf("Find(%q) = %s, want %s", tt.input, loc.ID, tt.wantID)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	if Default().ID != DefaultLocationID {
		t.Errorf("Default() = %s, want %s", Default().ID, DefaultLocationID)
	}
	if Default().Timezone != "Europe/Zurich" {
		t.Errorf("unexpected timezone %s", Default().Timezone)
	}
}

func TestNearest(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		wantID   string
	}{
		{name: "Winterthur is closest to Zurich", lat: 47.4988, lng: 8.7237, wantID: "zurich"},
		{name: "Montreux is closest to Lausanne", lat: 46.4312, lng: 6.9107, wantID: "lausanne"},
		{name: "Liestal is closest to Basel", lat: 47.4840, lng: 7.7349, wantID: "basel"},
		{name: "Thun is closest to Bern", lat: 46.7580, lng: 7.6280, wantID: "bern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Nearest(tt.lat, tt.lng); got.ID != tt.wantID {
				t.Errorf("Nearest(%v, %v) = %s, want %s", tt.lat, tt.lng, got.ID, tt.wantID)
			}
		})
	}
}
