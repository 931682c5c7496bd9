package portal

import (
	"context"

	portalerrors "yogaportal/internal/portal/errors"
	"yogaportal/pkg/events"
	"yogaportal/pkg/metrics"
	"yogaportal/pkg/model"
	"yogaportal/pkg/sanitizer"
)

const (
	bookingKindClass   = "class"
	bookingKindPrivate = "private"
)

// BookClass needs a remote session. Without one it fails before any request
// is made.
func (p *Portal) BookClass(ctx context.Context, req model.BookingRequest) model.Result {
	token, ok := p.remoteToken()
	if !ok {
		metrics.RecordBooking(bookingKindClass, "unauthenticated")
		return model.Fail(portalerrors.ErrAuthRequired.Error())
	}

	req.ClassID = sanitizer.ID(req.ClassID)
	if req.Participants == 0 {
		req.Participants = 1
	}
	if err := p.validator.ValidateBooking(&req); err != nil {
		metrics.RecordBooking(bookingKindClass, "invalid")
		return model.Fail(err.Error())
	}

	booking, err := p.market.CreateBooking(ctx, token, req)
	metrics.RecordBackendCall("create_booking", err)
	if err != nil {
		metrics.RecordBooking(bookingKindClass, "failed")
		p.log.Error("Class booking failed", "class_id", req.ClassID, "error", err)
		return failure(err)
	}

	metrics.RecordBooking(bookingKindClass, "created")
	p.log.Info("Class booked", "booking_id", booking.ID, "class_id", req.ClassID)

	p.publish(events.BookingUpdated, booking)
	_ = p.RefreshProfile(ctx)
	return model.Ok(booking)
}

func (p *Portal) BookPrivateLesson(ctx context.Context, req model.PrivateLessonRequest) model.Result {
	token, ok := p.remoteToken()
	if !ok {
		metrics.RecordBooking(bookingKindPrivate, "unauthenticated")
		return model.Fail(portalerrors.ErrAuthRequired.Error())
	}

	req.InstructorID = sanitizer.ID(req.InstructorID)
	if req.Location == "" {
		req.Location = p.CurrentLocation().ID
	}
	if req.Participants == 0 {
		req.Participants = 1
	}
	if err := p.validator.ValidatePrivateLesson(&req); err != nil {
		metrics.RecordBooking(bookingKindPrivate, "invalid")
		return model.Fail(err.Error())
	}

	booking, err := p.market.CreatePrivateBooking(ctx, token, req)
	metrics.RecordBackendCall("create_private_booking", err)
	if err != nil {
		metrics.RecordBooking(bookingKindPrivate, "failed")
		p.log.Error("Private lesson booking failed", "instructor_id", req.InstructorID, "error", err)
		return failure(err)
	}

	metrics.RecordBooking(bookingKindPrivate, "created")
	p.log.Info("Private lesson booked", "booking_id", booking.ID, "instructor_id", req.InstructorID)

	p.publish(events.BookingUpdated, booking)
	return model.Ok(booking)
}

func (p *Portal) CancelBooking(ctx context.Context, bookingID string) model.Result {
	token, ok := p.remoteToken()
	if !ok {
		return model.Fail(portalerrors.ErrAuthRequired.Error())
	}

	bookingID = sanitizer.ID(bookingID)
	if bookingID == "" {
		return model.Fail("Booking ID is required")
	}

	err := p.market.CancelBooking(ctx, token, bookingID)
	metrics.RecordBackendCall("cancel_booking", err)
	if err != nil {
		p.log.Error("Booking cancellation failed", "booking_id", bookingID, "error", err)
		return failure(err)
	}

	metrics.RecordBooking(bookingKindClass, model.BookingStatusCancelled)
	p.log.Info("Booking cancelled", "booking_id", bookingID)

	p.publish(events.BookingUpdated, map[string]string{"id": bookingID, "status": model.BookingStatusCancelled})
	_ = p.RefreshProfile(ctx)
	return model.Ok(map[string]string{"id": bookingID})
}

// GetMyBookings is never cached. Anonymous callers and failures get an
// empty list.
func (p *Portal) GetMyBookings(ctx context.Context) []model.Booking {
	token, ok := p.remoteToken()
	if !ok {
		return []model.Booking{}
	}

	bookings, err := p.market.MyBookings(ctx, token)
	metrics.RecordBackendCall("my_bookings", err)
	if err != nil {
		p.log.Warn("Failed to list bookings", "error", err)
		return []model.Booking{}
	}
	if bookings == nil {
		return []model.Booking{}
	}
	return bookings
}
