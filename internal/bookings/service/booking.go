package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "campusbook/internal/bookings/errors"
	"campusbook/internal/bookings/events"
	"campusbook/internal/bookings/repository"
	"campusbook/internal/bookings/validator"
	"campusbook/pkg/config"
	mongotx "campusbook/pkg/db/mongo"
	apperrors "campusbook/pkg/errors"
	"campusbook/pkg/model"
	"campusbook/pkg/sanitizer"
	"campusbook/pkg/token"

	"github.com/google/uuid"
)

// BookingService is the ledger: it owns all booking records and enforces
// the single-active-booking and no-overlap invariants at write time.
type BookingService interface {
	Create(ctx context.Context, userID, facility string, start, end *time.Time) (*model.BookingConfirmation, error)
	GetActive(ctx context.Context, userID string) (*model.Booking, error)
	ListSlots(ctx context.Context, facility string) ([]*model.Booking, error)
	Verify(ctx context.Context, bookingID string) (*model.Verification, error)
	ResolveToken(sealed string) (string, error)
	Cancel(ctx context.Context, userID string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.SlotLockRepository
	validator *validator.BookingValidator
	sealer    *token.Sealer
	events    events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.SlotLockRepository,
	validator *validator.BookingValidator,
	sealer *token.Sealer,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		sealer:    sealer,
		events:    publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) Create(ctx context.Context, userID, facility string, start, end *time.Time) (*model.BookingConfirmation, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	facility = sanitizer.NormalizeFacility(facility)
	if !s.cfg.FacilityAllowed(facility) {
		return nil, apperrors.InvalidFacility(facility)
	}

	now := s.now()
	windowStart, windowEnd, err := s.resolveWindow(now, start, end)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ID:        uuid.NewString(),
		Facility:  facility,
		UserID:    userID,
		StartTime: windowStart,
		EndTime:   windowEnd,
	}

	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.InvalidWindow(err.Error())
	}

	// Advisory locks serialize the check-then-write region per user and per
	// facility; the transaction makes the region itself atomic.
	release, err := s.acquireLocks(ctx, userID, facility)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx context.Context) error {
		if err := s.checkInvariants(sessCtx, booking, now); err != nil {
			return err
		}
		if err := s.repo.Insert(sessCtx, booking); err != nil {
			return s.storeErr("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, s.storeErr("Failed to create booking", err)
	}

	sealed, err := s.sealer.Seal(booking.ID, booking.StartTime, booking.EndTime)
	if err != nil {
		// The booking is committed; a token failure must not roll it back.
		s.cfg.Log.Error("Failed to seal verification token", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to issue verification token", err)
	}

	s.events.BookingCreated(ctx, booking)

	s.cfg.Log.Info("Booking created successfully",
		"booking_id", booking.ID,
		"facility", booking.Facility,
		"user_id", booking.UserID,
		"start", booking.StartTime,
		"end", booking.EndTime,
	)

	return &model.BookingConfirmation{
		Booking: booking,
		Token:   sealed,
	}, nil
}

func (s *bookingService) GetActive(ctx context.Context, userID string) (*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	now := s.now()
	booking, err := s.repo.FindActiveByUser(ctx, userID, now)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, nil
		}
		return nil, s.storeErr("Failed to retrieve booking", err)
	}

	// An expired booking must never surface as active, whatever the store
	// returned.
	if !booking.Active(now) {
		return nil, nil
	}

	return booking, nil
}

func (s *bookingService) ListSlots(ctx context.Context, facility string) ([]*model.Booking, error) {
	if facility != "" {
		facility = sanitizer.NormalizeFacility(facility)
		if !s.cfg.FacilityAllowed(facility) {
			return nil, apperrors.InvalidFacility(facility)
		}
	}

	bookings, err := s.repo.FindActiveSlots(ctx, facility, s.now())
	if err != nil {
		return nil, s.storeErr("Failed to retrieve booked slots", err)
	}

	return bookings, nil
}

func (s *bookingService) Verify(ctx context.Context, bookingID string) (*model.Verification, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.BookingNotFound(bookingID)
		}
		return nil, s.storeErr("Failed to retrieve booking", err)
	}

	// Outside-the-window bookings verify as inactive, not as errors.
	now := s.now()
	status := model.StatusInactive
	if !now.Before(booking.StartTime) && !now.After(booking.EndTime) {
		status = model.StatusActive
	}

	return &model.Verification{
		Status:    status,
		Facility:  booking.Facility,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		UserID:    booking.UserID,
	}, nil
}

func (s *bookingService) ResolveToken(sealed string) (string, error) {
	bookingID, _, _, err := s.sealer.Open(sealed)
	if err != nil {
		return "", apperrors.InvalidInput("Invalid verification token")
	}
	return bookingID, nil
}

func (s *bookingService) Cancel(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("User ID cannot be empty")
	}

	now := s.now()
	var cancelled *model.Booking

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx context.Context) error {
		booking, err := s.repo.FindActiveByUser(sessCtx, userID, now)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NoActiveBooking()
			}
			return s.storeErr("Failed to retrieve booking", err)
		}

		count, err := s.repo.DeleteActiveByUser(sessCtx, userID, now)
		if err != nil {
			return s.storeErr("Failed to cancel booking", err)
		}
		if count == 0 {
			return apperrors.NoActiveBooking()
		}

		cancelled = booking
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return s.storeErr("Failed to cancel booking", err)
	}

	s.events.BookingCancelled(ctx, cancelled)

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", cancelled.ID,
		"facility", cancelled.Facility,
		"user_id", cancelled.UserID,
	)
	return nil
}

// --- Helpers ---

// resolveWindow applies the slot policy: an omitted window starts now and
// runs for the configured duration; an explicit window is taken as given
// and validated downstream.
func (s *bookingService) resolveWindow(now time.Time, start, end *time.Time) (time.Time, time.Time, error) {
	var zero time.Time

	switch {
	case start == nil && end == nil:
		return now, now.Add(s.cfg.SlotDuration), nil
	case start == nil:
		return zero, zero, apperrors.InvalidWindow("start is required when end is given")
	}

	windowStart := start.UTC()
	windowEnd := windowStart.Add(s.cfg.SlotDuration)
	if end != nil {
		windowEnd = end.UTC()
	}

	if !windowEnd.After(windowStart) {
		return zero, zero, apperrors.InvalidWindow("end must be after start")
	}
	if !windowEnd.After(now) {
		return zero, zero, apperrors.InvalidWindow("window has already ended")
	}

	return windowStart, windowEnd, nil
}

// checkInvariants runs the read side of the check-then-write region. Must
// only be called while holding the user and facility locks.
func (s *bookingService) checkInvariants(ctx context.Context, booking *model.Booking, now time.Time) error {
	_, err := s.repo.FindActiveByUser(ctx, booking.UserID, now)
	if err == nil {
		return apperrors.UserAlreadyBooked()
	}
	if !errors.Is(err, bookingserrors.ErrNotFound) {
		return s.storeErr("Failed to check existing bookings", err)
	}

	existing, err := s.repo.FindOverlapping(ctx, booking.Facility, booking.StartTime, booking.EndTime)
	if err != nil {
		return s.storeErr("Failed to check slot availability", err)
	}
	for _, b := range existing {
		if b.Overlaps(booking.StartTime, booking.EndTime) {
			return apperrors.SlotConflict(fmt.Sprintf(
				"Slot already booked for this time (%s - %s)",
				b.StartTime.Format(time.RFC3339),
				b.EndTime.Format(time.RFC3339),
			))
		}
	}

	return nil
}

// acquireLocks takes the per-user and per-facility advisory locks, retrying
// a few times before surfacing the conflict to the caller.
func (s *bookingService) acquireLocks(ctx context.Context, userID, facility string) (func(), error) {
	userLockID := "user_" + userID
	facilityLockID := "facility_" + facility

	var lastHeld error
	for attempt := 0; attempt < s.cfg.CreateMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 25 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperrors.StoreUnavailable(ctx.Err())
			}
		}

		userHolder, err := s.acquireLock(ctx, userLockID)
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			lastHeld = apperrors.UserAlreadyBooked()
			continue
		}
		if err != nil {
			return nil, s.storeErr("Failed to acquire booking lock", err)
		}

		facilityHolder, err := s.acquireLock(ctx, facilityLockID)
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			s.releaseLock(userLockID, userHolder)
			lastHeld = apperrors.SlotConflict("This slot is currently being booked by another request. Please try again.")
			continue
		}
		if err != nil {
			s.releaseLock(userLockID, userHolder)
			return nil, s.storeErr("Failed to acquire booking lock", err)
		}

		release := func() {
			s.releaseLock(facilityLockID, facilityHolder)
			s.releaseLock(userLockID, userHolder)
		}
		return release, nil
	}

	return nil, lastHeld
}

// acquireLock inserts the lock document under a fresh holder id and returns
// that id; release must present it again.
func (s *bookingService) acquireLock(ctx context.Context, lockID string) (string, error) {
	holder := uuid.NewString()
	err := s.lockRepo.Acquire(ctx, &model.SlotLock{
		ID:        lockID,
		Holder:    holder,
		ExpiresAt: time.Now().Add(s.cfg.LockTTL),
	})
	if err != nil {
		return "", err
	}
	return holder, nil
}

func (s *bookingService) releaseLock(lockID, holder string) {
	// Release on a fresh context so a cancelled request still frees the lock.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.lockRepo.Release(ctx, lockID, holder); err != nil {
		s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", err)
	}
}

func (s *bookingService) storeErr(msg string, err error) *apperrors.AppError {
	if mongotx.IsUnavailable(err) {
		return apperrors.StoreUnavailable(err)
	}
	return apperrors.Internal(msg, err)
}
