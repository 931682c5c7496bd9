package validator

import (
	"errors"
	"strings"
	"testing"

	"yogaportal/pkg/logger"
	"yogaportal/pkg/model"
)

func newValidator() *PortalValidator {
	return NewPortalValidator(logger.Discard())
}

func fieldErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T (%v)", err, err)
	}
	return verrs
}

func TestValidateCartItem(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name      string
		item      model.CartItem
		wantField string
	}{
		{
			name: "valid class",
			item: model.CartItem{ID: "vinyasa-flow-101", Type: model.CartItemClass, Name: "Vinyasa Flow", Price: 32, Quantity: 1},
		},
		{
			name:      "missing id",
			item:      model.CartItem{Type: model.CartItemClass, Name: "x", Price: 1, Quantity: 1},
			wantField: "ID",
		},
		{
			name:      "unknown type",
			item:      model.CartItem{ID: "a", Type: "gift", Name: "x", Price: 1, Quantity: 1},
			wantField: "Type",
		},
		{
			name:      "negative price",
			item:      model.CartItem{ID: "a", Type: model.CartItemPass, Name: "x", Price: -5, Quantity: 1},
			wantField: "Price",
		},
		{
			name:      "zero quantity",
			item:      model.CartItem{ID: "a", Type: model.CartItemPass, Name: "x", Price: 5, Quantity: 0},
			wantField: "Quantity",
		},
		{
			name:      "bad time",
			item:      model.CartItem{ID: "a", Type: model.CartItemClass, Name: "x", Price: 5, Quantity: 1, Time: "7pm"},
			wantField: "Time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCartItem(&tt.item)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			verrs := fieldErrors(t, err)
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %s, want %s", verrs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidateClassQuery_Location(t *testing.T) {
	v := newValidator()

	if err := v.ValidateClassQuery(&model.ClassQuery{Location: "Zurich", Style: "Vinyasa"}); err != nil {
		t.Fatalf("zurich should be accepted: %v", err)
	}

	err := v.ValidateClassQuery(&model.ClassQuery{Location: "paris"})
	verrs := fieldErrors(t, err)
	if verrs[0].Field != "Location" {
		t.Errorf("field = %s, want Location", verrs[0].Field)
	}
	if !strings.HasPrefix(verrs[0].Message, "Location must be one of: zurich") {
		t.Errorf("unexpected message %q", verrs[0].Message)
	}
}

func TestValidateFilters(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		filters model.SearchFilters
		wantErr bool
	}{
		{"empty", model.SearchFilters{}, false},
		{"price range", model.SearchFilters{PriceMin: 10, PriceMax: 40}, false},
		{"inverted price range", model.SearchFilters{PriceMin: 40, PriceMax: 10}, true},
		{"inverted dates", model.SearchFilters{DateFrom: "2026-05-02", DateTo: "2026-05-01"}, true},
		{"unknown time of day", model.SearchFilters{TimeOfDay: []string{"midnight"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFilters(&tt.filters)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilters() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePrivateLesson(t *testing.T) {
	v := newValidator()
	req := model.PrivateLessonRequest{
		InstructorID:    "inst-1",
		Date:            "2026-06-01",
		StartTime:       "09:30",
		DurationMinutes: 60,
		Participants:    1,
		Location:        "lausanne",
	}
	if err := v.ValidatePrivateLesson(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req.DurationMinutes = 50
	verrs := fieldErrors(t, v.ValidatePrivateLesson(&req))
	if verrs[0].Field != "DurationMinutes" {
		t.Errorf("field = %s", verrs[0].Field)
	}

	req.DurationMinutes = 60
	req.Location = "lugano"
	verrs = fieldErrors(t, v.ValidatePrivateLesson(&req))
	if verrs[0].Field != "Location" {
		t.Errorf("field = %s", verrs[0].Field)
	}
}

func TestValidationErrors_Details(t *testing.T) {
	errs := ValidationErrors{{Field: "Price", Message: "bad"}, {Field: "Quantity", Message: "worse"}}

	details := errs.Details()
	if details["Price"] != "bad" || details["Quantity"] != "worse" {
		t.Errorf("unexpected details %v", details)
	}
	if !strings.Contains(errs.Error(), "2 error(s)") {
		t.Errorf("unexpected message %q", errs.Error())
	}
}
