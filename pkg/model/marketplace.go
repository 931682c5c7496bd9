package model

import (
	"encoding/json"
	"time"
)

type Class struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Style           string   `json:"style"`
	Level           string   `json:"level"`
	Language        string   `json:"language,omitempty"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Price           float64  `json:"price"`
	Currency        string   `json:"currency"`
	SpotsLeft       int      `json:"spots_left"`
	Capacity        int      `json:"capacity"`
	Outdoor         bool     `json:"outdoor"`
	InstructorID    string   `json:"instructor_id"`
	InstructorName  string   `json:"instructor_name"`
	StudioID        string   `json:"studio_id"`
	StudioName      string   `json:"studio_name"`
	Location        string   `json:"location"`
	Tags            []string `json:"tags,omitempty"`
}

type Studio struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Location    string   `json:"location"`
	Address     string   `json:"address"`
	Description string   `json:"description,omitempty"`
	Styles      []string `json:"styles,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
	ImageURL    string   `json:"image_url,omitempty"`
}

type Instructor struct {
	ID           string   `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Bio          string   `json:"bio,omitempty"`
	Styles       []string `json:"styles,omitempty"`
	Languages    []string `json:"languages,omitempty"`
	Locations    []string `json:"locations,omitempty"`
	Rating       float64  `json:"rating"`
	ReviewCount  int      `json:"review_count"`
	HourlyRate   float64  `json:"hourly_rate"`
	ProfileImage string   `json:"profile_image,omitempty"`
}

type Review struct {
	ID           string    `json:"id"`
	AuthorName   string    `json:"author_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	StudioID     string    `json:"studio_id,omitempty"`
	InstructorID string    `json:"instructor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type AvailabilitySlot struct {
	InstructorID string `json:"instructor_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Available    bool   `json:"available"`
	Location     string `json:"location,omitempty"`
}

// Weather is produced by a synthetic generator until a weather provider is wired.
type Weather struct {
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	TemperatureC    float64 `json:"temperature_c"`
	Condition       string  `json:"condition"`
	Humidity        int     `json:"humidity"`
	WindKph         float64 `json:"wind_kph"`
	OutdoorFriendly bool    `json:"outdoor_friendly"`
	Synthetic       bool    `json:"synthetic"`
}

type LocalEvent struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Type      string  `json:"type"`
	Location  string  `json:"location"`
	StartsAt  string  `json:"starts_at"`
	EndsAt    string  `json:"ends_at,omitempty"`
	Price     float64 `json:"price"`
	Organizer string  `json:"organizer,omitempty"`
}

// Query types double as cache key material: their JSON encoding is the
// canonical parameter serialization.

type ClassQuery struct {
	Location string        `json:"location,omitempty"`
	Style    string        `json:"style,omitempty"`
	Date     string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Filters  SearchFilters `json:"filters"`
}

type StudioQuery struct {
	Location string `json:"location,omitempty"`
	Style    string `json:"style,omitempty"`
}

type InstructorQuery struct {
	Location string `json:"location,omitempty"`
	Style    string `json:"style,omitempty"`
	Language string `json:"language,omitempty"`
}

type EventQuery struct {
	Location string `json:"location,omitempty"`
	From     string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To       string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Type     string `json:"type,omitempty"`
}

// CanonicalParams encodes v for use in a cache key.
func CanonicalParams(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
