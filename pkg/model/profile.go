package model

import "time"

type NotificationPreferences struct {
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	Push  bool `json:"push" bson:"push"`
}

type GuestPreferences struct {
	FavoriteStyles      []string                `json:"favorite_styles" bson:"favorite_styles"`
	PreferredLanguages  []string                `json:"preferred_languages" bson:"preferred_languages"`
	AvailabilityWindows []string                `json:"availability_windows" bson:"availability_windows"`
	LevelExperience     string                  `json:"level_experience" bson:"level_experience" validate:"omitempty,oneof=beginner intermediate advanced all"`
	Notifications       NotificationPreferences `json:"notifications" bson:"notifications"`
}

// Merge fills the empty fields of p with the guest's values. Fields the
// profile already holds are kept.
func (p GuestPreferences) Merge(guest GuestPreferences) GuestPreferences {
	out := p
	if len(out.FavoriteStyles) == 0 {
		out.FavoriteStyles = append([]string(nil), guest.FavoriteStyles...)
	}
	if len(out.PreferredLanguages) == 0 {
		out.PreferredLanguages = append([]string(nil), guest.PreferredLanguages...)
	}
	if len(out.AvailabilityWindows) == 0 {
		out.AvailabilityWindows = append([]string(nil), guest.AvailabilityWindows...)
	}
	if out.LevelExperience == "" {
		out.LevelExperience = guest.LevelExperience
	}
	if out.Notifications == (NotificationPreferences{}) {
		out.Notifications = guest.Notifications
	}
	return out
}

func (p GuestPreferences) Clone() GuestPreferences {
	out := p
	out.FavoriteStyles = cloneStrings(p.FavoriteStyles)
	out.PreferredLanguages = cloneStrings(p.PreferredLanguages)
	out.AvailabilityWindows = cloneStrings(p.AvailabilityWindows)
	return out
}

type CustomerProfile struct {
	ID               string           `json:"id" bson:"id"`
	FirstName        string           `json:"first_name" bson:"first_name"`
	LastName         string           `json:"last_name" bson:"last_name"`
	Email            string           `json:"email" bson:"email"`
	Phone            string           `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfileImage     string           `json:"profile_image,omitempty" bson:"profile_image,omitempty"`
	Preferences      GuestPreferences `json:"preferences" bson:"preferences"`
	MembershipStatus string           `json:"membership_status,omitempty" bson:"membership_status,omitempty"`
	CreditsBalance   int              `json:"credits_balance" bson:"credits_balance"`
	UpcomingBookings int              `json:"upcoming_bookings" bson:"upcoming_bookings"`
	TotalClasses     int              `json:"total_classes" bson:"total_classes"`
	JoinedAt         *time.Time       `json:"joined_at,omitempty" bson:"joined_at,omitempty"`
}

func (p *CustomerProfile) Clone() *CustomerProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Preferences = p.Preferences.Clone()
	if p.JoinedAt != nil {
		t := *p.JoinedAt
		c.JoinedAt = &t
	}
	return &c
}

type ProfileUpdate struct {
	FirstName    *string           `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName     *string           `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone        *string           `json:"phone,omitempty" validate:"omitempty,max=32"`
	ProfileImage *string           `json:"profile_image,omitempty" validate:"omitempty,url"`
	Preferences  *GuestPreferences `json:"preferences,omitempty"`
}

// Apply returns a copy of p with the non-nil update fields set.
func (u ProfileUpdate) Apply(p *CustomerProfile) *CustomerProfile {
	out := p.Clone()
	if out == nil {
		return nil
	}
	if u.FirstName != nil {
		out.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		out.LastName = *u.LastName
	}
	if u.Phone != nil {
		out.Phone = *u.Phone
	}
	if u.ProfileImage != nil {
		out.ProfileImage = *u.ProfileImage
	}
	if u.Preferences != nil {
		out.Preferences = u.Preferences.Clone()
	}
	return out
}
