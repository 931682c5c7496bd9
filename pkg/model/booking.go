package model

import "time"

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusPending   = "pending"
	BookingStatusCancelled = "cancelled"
)

type BookingRequest struct {
	ClassID       string `json:"class_id" validate:"required,max=128"`
	Participants  int    `json:"participants" validate:"gte=1,lte=20"`
	UseCredits    bool   `json:"use_credits"`
	PaymentMethod string `json:"payment_method,omitempty" validate:"omitempty,oneof=card twint credits invoice"`
	Notes         string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type PrivateLessonRequest struct {
	InstructorID    string `json:"instructor_id" validate:"required,max=128"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,oneof=30 45 60 75 90 120"`
	Location        string `json:"location,omitempty"`
	Focus           string `json:"focus,omitempty" validate:"omitempty,max=200"`
	Participants    int    `json:"participants" validate:"gte=1,lte=6"`
}

type Booking struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	ClassID      string    `json:"class_id,omitempty"`
	InstructorID string    `json:"instructor_id,omitempty"`
	Status       string    `json:"status"`
	Participants int       `json:"participants"`
	TotalPrice   float64   `json:"total_price"`
	Currency     string    `json:"currency"`
	StartsAt     string    `json:"starts_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
