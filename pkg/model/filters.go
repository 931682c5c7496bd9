package model

// SearchFilters is transient UI state. It is never persisted.
type SearchFilters struct {
	DateFrom      string   `json:"date_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateTo        string   `json:"date_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TimeOfDay     []string `json:"time_of_day,omitempty" validate:"omitempty,dive,oneof=morning midday afternoon evening"`
	Styles        []string `json:"styles,omitempty"`
	Levels        []string `json:"levels,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	PriceMin      float64  `json:"price_min,omitempty" validate:"gte=0"`
	PriceMax      float64  `json:"price_max,omitempty" validate:"omitempty,gtefield=PriceMin"`
	Indoor        bool     `json:"indoor,omitempty"`
	Outdoor       bool     `json:"outdoor,omitempty"`
	InstructorIDs []string `json:"instructor_ids,omitempty"`
	StudioIDs     []string `json:"studio_ids,omitempty"`
}

func (f SearchFilters) IsZero() bool {
	return f.DateFrom == "" && f.DateTo == "" &&
		len(f.TimeOfDay) == 0 && len(f.Styles) == 0 && len(f.Levels) == 0 && len(f.Languages) == 0 &&
		f.PriceMin == 0 && f.PriceMax == 0 && !f.Indoor && !f.Outdoor &&
		len(f.InstructorIDs) == 0 && len(f.StudioIDs) == 0
}

func (f SearchFilters) Clone() SearchFilters {
	out := f
	out.TimeOfDay = cloneStrings(f.TimeOfDay)
	out.Styles = cloneStrings(f.Styles)
	out.Levels = cloneStrings(f.Levels)
	out.Languages = cloneStrings(f.Languages)
	out.InstructorIDs = cloneStrings(f.InstructorIDs)
	out.StudioIDs = cloneStrings(f.StudioIDs)
	return out
}

// cloneStrings keeps nil as nil so JSON output is unchanged.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
