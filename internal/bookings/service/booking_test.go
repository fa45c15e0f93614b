package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	bookingserrors "campusbook/internal/bookings/errors"
	"campusbook/internal/bookings/repository"
	"campusbook/internal/bookings/validator"
	"campusbook/pkg/config"
	mongotx "campusbook/pkg/db/mongo"
	apperrors "campusbook/pkg/errors"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"
	"campusbook/pkg/token"
)

// --- Mocks ---

type mockBookingRepo struct {
	insertFn             func(ctx context.Context, booking *model.Booking) error
	findByIDFn           func(ctx context.Context, id string) (*model.Booking, error)
	findActiveByUserFn   func(ctx context.Context, userID string, now time.Time) (*model.Booking, error)
	findOverlappingFn    func(ctx context.Context, facility string, start, end time.Time) ([]*model.Booking, error)
	findActiveSlotsFn    func(ctx context.Context, facility string, now time.Time) ([]*model.Booking, error)
	deleteActiveByUserFn func(ctx context.Context, userID string, now time.Time) (int64, error)
}

func (m *mockBookingRepo) Insert(ctx context.Context, booking *model.Booking) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, booking)
	}
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepo) FindActiveByUser(ctx context.Context, userID string, now time.Time) (*model.Booking, error) {
	if m.findActiveByUserFn != nil {
		return m.findActiveByUserFn(ctx, userID, now)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepo) FindOverlapping(ctx context.Context, facility string, start, end time.Time) ([]*model.Booking, error) {
	if m.findOverlappingFn != nil {
		return m.findOverlappingFn(ctx, facility, start, end)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindActiveSlots(ctx context.Context, facility string, now time.Time) ([]*model.Booking, error) {
	if m.findActiveSlotsFn != nil {
		return m.findActiveSlotsFn(ctx, facility, now)
	}
	return nil, nil
}

func (m *mockBookingRepo) DeleteActiveByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	if m.deleteActiveByUserFn != nil {
		return m.deleteActiveByUserFn(ctx, userID, now)
	}
	return 0, nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type mockLockRepo struct {
	acquireFn func(ctx context.Context, lock *model.SlotLock) error

	acquired        []string
	acquiredHolders map[string]string
	released        []string
	releasedHolders map[string]string
}

func (m *mockLockRepo) Acquire(ctx context.Context, lock *model.SlotLock) error {
	if m.acquireFn != nil {
		if err := m.acquireFn(ctx, lock); err != nil {
			return err
		}
	}
	if m.acquiredHolders == nil {
		m.acquiredHolders = make(map[string]string)
	}
	m.acquired = append(m.acquired, lock.ID)
	m.acquiredHolders[lock.ID] = lock.Holder
	return nil
}

func (m *mockLockRepo) Release(ctx context.Context, lockID, holder string) error {
	if m.releasedHolders == nil {
		m.releasedHolders = make(map[string]string)
	}
	m.released = append(m.released, lockID)
	m.releasedHolders[lockID] = holder
	return nil
}

func (m *mockLockRepo) EnsureIndexes(ctx context.Context) error { return nil }

type recordingPublisher struct {
	mu        sync.Mutex
	created   []*model.Booking
	cancelled []*model.Booking
}

func (p *recordingPublisher) BookingCreated(_ context.Context, booking *model.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, booking)
}

func (p *recordingPublisher) BookingCancelled(_ context.Context, booking *model.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, booking)
}

// --- Helpers ---

var testNow = time.Date(2025, 6, 2, 10, 5, 0, 0, time.UTC)

func newTestService(t *testing.T, repo repository.BookingRepository, lockRepo repository.SlotLockRepository) (*bookingService, *recordingPublisher) {
	t.Helper()

	log := logger.New(logger.Config{Output: io.Discard})
	sealer, err := token.NewSealer(config.DefaultDevSealKey)
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}

	cfg := &config.Config{
		Facilities:       []string{"Gym", "Basketball", "Badminton", "Table Tennis"},
		SlotDuration:     time.Hour,
		LockTTL:          10 * time.Second,
		CreateMaxRetries: 3,
		Log:              log,
	}

	publisher := &recordingPublisher{}
	svc := &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator.NewBookingValidator(log, cfg.SlotDuration),
		sealer:    sealer,
		events:    publisher,
		cfg:       cfg,
		now:       func() time.Time { return testNow },
	}
	return svc, publisher
}

func timePtr(t time.Time) *time.Time { return &t }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected code %s, got %T: %v", code, err, err)
	}
}

// --- Create ---

func TestCreateDefaultWindow(t *testing.T) {
	var inserted *model.Booking
	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, booking *model.Booking) error {
			inserted = booking
			return nil
		},
	}
	lockRepo := &mockLockRepo{}
	svc, publisher := newTestService(t, repo, lockRepo)

	confirmation, err := svc.Create(context.Background(), "user-1", "Gym", nil, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if inserted == nil {
		t.Fatal("expected booking to be inserted")
	}
	if !inserted.StartTime.Equal(testNow) {
		t.Errorf("expected start %v, got %v", testNow, inserted.StartTime)
	}
	if !inserted.EndTime.Equal(testNow.Add(time.Hour)) {
		t.Errorf("expected end %v, got %v", testNow.Add(time.Hour), inserted.EndTime)
	}
	if inserted.Facility != "Gym" {
		t.Errorf("expected facility Gym, got %s", inserted.Facility)
	}

	if confirmation.Token == "" {
		t.Fatal("expected a verification token")
	}
	id, start, end, err := svc.sealer.Open(confirmation.Token)
	if err != nil {
		t.Fatalf("token did not open: %v", err)
	}
	if id != inserted.ID {
		t.Errorf("token carries booking id %s, want %s", id, inserted.ID)
	}
	if !start.Equal(inserted.StartTime) || !end.Equal(inserted.EndTime) {
		t.Errorf("token window [%v, %v] does not match booking [%v, %v]", start, end, inserted.StartTime, inserted.EndTime)
	}

	if len(publisher.created) != 1 {
		t.Errorf("expected 1 created event, got %d", len(publisher.created))
	}

	wantLocks := []string{"user_user-1", "facility_Gym"}
	if len(lockRepo.acquired) != 2 || lockRepo.acquired[0] != wantLocks[0] || lockRepo.acquired[1] != wantLocks[1] {
		t.Errorf("acquired locks %v, want %v", lockRepo.acquired, wantLocks)
	}
	if len(lockRepo.released) != 2 {
		t.Errorf("expected both locks released, got %v", lockRepo.released)
	}
	// Release must present the holder id the lock was acquired under.
	for _, lockID := range wantLocks {
		if lockRepo.acquiredHolders[lockID] == "" {
			t.Errorf("lock %s acquired without a holder id", lockID)
		}
		if lockRepo.releasedHolders[lockID] != lockRepo.acquiredHolders[lockID] {
			t.Errorf("lock %s released with holder %q, acquired with %q",
				lockID, lockRepo.releasedHolders[lockID], lockRepo.acquiredHolders[lockID])
		}
	}
}

func TestCreateExplicitWindow(t *testing.T) {
	start := testNow.Add(2 * time.Hour)

	var inserted *model.Booking
	repo := &mockBookingRepo{
		insertFn: func(_ context.Context, booking *model.Booking) error {
			inserted = booking
			return nil
		},
	}
	svc, _ := newTestService(t, repo, &mockLockRepo{})

	_, err := svc.Create(context.Background(), "user-1", "Badminton", timePtr(start), nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !inserted.StartTime.Equal(start) || !inserted.EndTime.Equal(start.Add(time.Hour)) {
		t.Errorf("window [%v, %v], want [%v, %v]", inserted.StartTime, inserted.EndTime, start, start.Add(time.Hour))
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	endBeforeStart := testNow.Add(time.Hour)
	startAfterEnd := testNow.Add(2 * time.Hour)
	pastStart := testNow.Add(-3 * time.Hour)
	oddEnd := testNow.Add(30 * time.Minute)

	tests := []struct {
		name     string
		userID   string
		facility string
		start    *time.Time
		end      *time.Time
		wantCode string
	}{
		{
			name:     "empty user id",
			userID:   "",
			facility: "Gym",
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "unknown facility",
			userID:   "user-1",
			facility: "Pool",
			wantCode: apperrors.CodeInvalidFacility,
		},
		{
			name:     "end without start",
			userID:   "user-1",
			facility: "Gym",
			end:      timePtr(testNow.Add(time.Hour)),
			wantCode: apperrors.CodeInvalidWindow,
		},
		{
			name:     "end before start",
			userID:   "user-1",
			facility: "Gym",
			start:    timePtr(startAfterEnd),
			end:      timePtr(endBeforeStart),
			wantCode: apperrors.CodeInvalidWindow,
		},
		{
			name:     "window already over",
			userID:   "user-1",
			facility: "Gym",
			start:    timePtr(pastStart),
			end:      timePtr(pastStart.Add(time.Hour)),
			wantCode: apperrors.CodeInvalidWindow,
		},
		{
			name:     "wrong slot length",
			userID:   "user-1",
			facility: "Gym",
			start:    timePtr(testNow),
			end:      timePtr(oddEnd),
			wantCode: apperrors.CodeInvalidWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, &mockBookingRepo{}, &mockLockRepo{})
			_, err := svc.Create(context.Background(), tt.userID, tt.facility, tt.start, tt.end)
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestCreateUserAlreadyBooked(t *testing.T) {
	existing := &model.Booking{
		ID:        "11111111-1111-4111-8111-111111111111",
		Facility:  "Badminton",
		UserID:    "user-1",
		StartTime: testNow,
		EndTime:   testNow.Add(time.Hour),
	}
	repo := &mockBookingRepo{
		findActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (*model.Booking, error) {
			return existing, nil
		},
		insertFn: func(_ context.Context, _ *model.Booking) error {
			t.Fatal("Insert must not be called when the user already holds a booking")
			return nil
		},
	}
	svc, publisher := newTestService(t, repo, &mockLockRepo{})

	// A second booking is rejected even on a different facility.
	_, err := svc.Create(context.Background(), "user-1", "Gym", nil, nil)
	assertCode(t, err, apperrors.CodeUserAlreadyBooked)
	if len(publisher.created) != 0 {
		t.Errorf("expected no events, got %d", len(publisher.created))
	}
}

func TestCreateSlotConflict(t *testing.T) {
	conflicting := &model.Booking{
		ID:        "22222222-2222-4222-8222-222222222222",
		Facility:  "Gym",
		UserID:    "user-2",
		StartTime: testNow.Add(-30 * time.Minute),
		EndTime:   testNow.Add(30 * time.Minute),
	}
	repo := &mockBookingRepo{
		findOverlappingFn: func(_ context.Context, _ string, _, _ time.Time) ([]*model.Booking, error) {
			return []*model.Booking{conflicting}, nil
		},
	}
	svc, _ := newTestService(t, repo, &mockLockRepo{})

	_, err := svc.Create(context.Background(), "user-1", "Gym", nil, nil)
	assertCode(t, err, apperrors.CodeSlotConflict)
}

func TestCreateBackToBackSlots(t *testing.T) {
	// An existing slot ending exactly when the new one starts is not a
	// conflict.
	adjacent := &model.Booking{
		ID:        "33333333-3333-4333-8333-333333333333",
		Facility:  "Gym",
		UserID:    "user-2",
		StartTime: testNow.Add(-time.Hour),
		EndTime:   testNow,
	}
	repo := &mockBookingRepo{
		findOverlappingFn: func(_ context.Context, _ string, _, _ time.Time) ([]*model.Booking, error) {
			return []*model.Booking{adjacent}, nil
		},
	}
	svc, _ := newTestService(t, repo, &mockLockRepo{})

	_, err := svc.Create(context.Background(), "user-1", "Gym", nil, nil)
	if err != nil {
		t.Fatalf("back-to-back booking should succeed, got: %v", err)
	}
}

func TestCreateStoreUnavailable(t *testing.T) {
	repo := &mockBookingRepo{
		findActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (*model.Booking, error) {
			return nil, context.DeadlineExceeded
		},
	}
	svc, _ := newTestService(t, repo, &mockLockRepo{})

	// A store timeout must never read as "no conflict".
	_, err := svc.Create(context.Background(), "user-1", "Gym", nil, nil)
	assertCode(t, err, apperrors.CodeStoreUnavailable)
}

func TestCreateLockRetry(t *testing.T) {
	attempts := 0
	lockRepo := &mockLockRepo{}
	lockRepo.acquireFn = func(_ context.Context, lock *model.SlotLock) error {
		if lock.ID == "user_user-1" {
			attempts++
			if attempts < 3 {
				return bookingserrors.ErrLockHeld
			}
		}
		return nil
	}
	svc, _ := newTestService(t, &mockBookingRepo{}, lockRepo)

	_, err := svc.Create(context.Background(), "user-1", "Gym", nil, nil)
	if err != nil {
		t.Fatalf("Create should succeed once the lock frees up, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 acquisition attempts, got %d", attempts)
	}
}

func TestCreateLockExhaustion(t *testing.T) {
	tests := []struct {
		name     string
		heldLock string
		wantCode string
	}{
		{
			name:     "user lock held",
			heldLock: "user_user-1",
			wantCode: apperrors.CodeUserAlreadyBooked,
		},
		{
			name:     "facility lock held",
			heldLock: "facility_Gym",
			wantCode: apperrors.CodeSlotConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lockRepo := &mockLockRepo{}
			lockRepo.acquireFn = func(_ context.Context, lock *model.SlotLock) error {
				if lock.ID == tt.heldLock {
					return bookingserrors.ErrLockHeld
				}
				return nil
			}
			repo := &mockBookingRepo{
				insertFn: func(_ context.Context, _ *model.Booking) error {
					t.Fatal("Insert must not be called without the locks")
					return nil
				},
			}
			svc, _ := newTestService(t, repo, lockRepo)

			_, err := svc.Create(context.Background(), "user-1", "Gym", nil, nil)
			assertCode(t, err, tt.wantCode)

			// Partially acquired locks are released on every attempt.
			if len(lockRepo.acquired) != len(lockRepo.released) {
				t.Errorf("acquired %v but released %v", lockRepo.acquired, lockRepo.released)
			}
		})
	}
}

// --- GetActive ---

func TestGetActive(t *testing.T) {
	active := &model.Booking{
		ID:        "44444444-4444-4444-8444-444444444444",
		Facility:  "Gym",
		UserID:    "user-1",
		StartTime: testNow.Add(-10 * time.Minute),
		EndTime:   testNow.Add(50 * time.Minute),
	}

	t.Run("found", func(t *testing.T) {
		repo := &mockBookingRepo{
			findActiveByUserFn: func(_ context.Context, userID string, _ time.Time) (*model.Booking, error) {
				if userID != "user-1" {
					t.Errorf("queried user %s, want user-1", userID)
				}
				return active, nil
			},
		}
		svc, _ := newTestService(t, repo, &mockLockRepo{})

		booking, err := svc.GetActive(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("GetActive returned error: %v", err)
		}
		if booking == nil || booking.ID != active.ID {
			t.Fatalf("expected booking %s, got %+v", active.ID, booking)
		}
	})

	t.Run("none", func(t *testing.T) {
		svc, _ := newTestService(t, &mockBookingRepo{}, &mockLockRepo{})

		booking, err := svc.GetActive(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("GetActive returned error: %v", err)
		}
		if booking != nil {
			t.Fatalf("expected no booking, got %+v", booking)
		}
	})

	t.Run("expired booking from store reads as none", func(t *testing.T) {
		expired := &model.Booking{
			ID:        active.ID,
			Facility:  active.Facility,
			UserID:    active.UserID,
			StartTime: testNow.Add(-2 * time.Hour),
			EndTime:   testNow.Add(-time.Hour),
		}
		repo := &mockBookingRepo{
			findActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (*model.Booking, error) {
				return expired, nil
			},
		}
		svc, _ := newTestService(t, repo, &mockLockRepo{})

		booking, err := svc.GetActive(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("GetActive returned error: %v", err)
		}
		if booking != nil {
			t.Fatalf("expired booking surfaced as active: %+v", booking)
		}
	})

	t.Run("store timeout", func(t *testing.T) {
		repo := &mockBookingRepo{
			findActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (*model.Booking, error) {
				return nil, context.DeadlineExceeded
			},
		}
		svc, _ := newTestService(t, repo, &mockLockRepo{})

		_, err := svc.GetActive(context.Background(), "user-1")
		assertCode(t, err, apperrors.CodeStoreUnavailable)
	})
}

// --- ListSlots ---

func TestListSlots(t *testing.T) {
	t.Run("filters by facility", func(t *testing.T) {
		var queried string
		repo := &mockBookingRepo{
			findActiveSlotsFn: func(_ context.Context, facility string, _ time.Time) ([]*model.Booking, error) {
				queried = facility
				return nil, nil
			},
		}
		svc, _ := newTestService(t, repo, &mockLockRepo{})

		if _, err := svc.ListSlots(context.Background(), "  Gym  "); err != nil {
			t.Fatalf("ListSlots returned error: %v", err)
		}
		if queried != "Gym" {
			t.Errorf("queried facility %q, want %q", queried, "Gym")
		}
	})

	t.Run("rejects unknown facility", func(t *testing.T) {
		svc, _ := newTestService(t, &mockBookingRepo{}, &mockLockRepo{})
		_, err := svc.ListSlots(context.Background(), "Pool")
		assertCode(t, err, apperrors.CodeInvalidFacility)
	})

	t.Run("no filter lists all", func(t *testing.T) {
		var queried string
		repo := &mockBookingRepo{
			findActiveSlotsFn: func(_ context.Context, facility string, _ time.Time) ([]*model.Booking, error) {
				queried = facility
				return []*model.Booking{{ID: "a"}, {ID: "b"}}, nil
			},
		}
		svc, _ := newTestService(t, repo, &mockLockRepo{})

		slots, err := svc.ListSlots(context.Background(), "")
		if err != nil {
			t.Fatalf("ListSlots returned error: %v", err)
		}
		if queried != "" {
			t.Errorf("expected unfiltered query, got facility %q", queried)
		}
		if len(slots) != 2 {
			t.Errorf("expected 2 slots, got %d", len(slots))
		}
	})
}

// --- Verify ---

func TestVerify(t *testing.T) {
	booking := &model.Booking{
		ID:        "55555555-5555-4555-8555-555555555555",
		Facility:  "Gym",
		UserID:    "user-1",
		StartTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC),
	}
	repo := &mockBookingRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Booking, error) {
			if id == booking.ID {
				return booking, nil
			}
			return nil, bookingserrors.ErrNotFound
		},
	}

	tests := []struct {
		name       string
		at         time.Time
		wantStatus string
	}{
		{name: "inside window", at: time.Date(2025, 6, 2, 10, 5, 0, 0, time.UTC), wantStatus: model.StatusActive},
		{name: "at start", at: booking.StartTime, wantStatus: model.StatusActive},
		{name: "at end", at: booking.EndTime, wantStatus: model.StatusActive},
		{name: "before window", at: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), wantStatus: model.StatusInactive},
		{name: "after window", at: time.Date(2025, 6, 2, 11, 0, 1, 0, time.UTC), wantStatus: model.StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, repo, &mockLockRepo{})
			svc.now = func() time.Time { return tt.at }

			verification, err := svc.Verify(context.Background(), booking.ID)
			if err != nil {
				t.Fatalf("Verify returned error: %v", err)
			}
			if verification.Status != tt.wantStatus {
				t.Errorf("status %s, want %s", verification.Status, tt.wantStatus)
			}
			if verification.Facility != booking.Facility || verification.UserID != booking.UserID {
				t.Errorf("verification does not echo the booking: %+v", verification)
			}
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		svc, _ := newTestService(t, repo, &mockLockRepo{})
		_, err := svc.Verify(context.Background(), "66666666-6666-4666-8666-666666666666")
		assertCode(t, err, apperrors.CodeBookingNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		svc, _ := newTestService(t, repo, &mockLockRepo{})
		_, err := svc.Verify(context.Background(), "")
		assertCode(t, err, apperrors.CodeInvalidInput)
	})
}

func TestResolveToken(t *testing.T) {
	svc, _ := newTestService(t, &mockBookingRepo{}, &mockLockRepo{})

	sealed, err := svc.sealer.Seal("77777777-7777-4777-8777-777777777777", testNow, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to seal token: %v", err)
	}

	id, err := svc.ResolveToken(sealed)
	if err != nil {
		t.Fatalf("ResolveToken returned error: %v", err)
	}
	if id != "77777777-7777-4777-8777-777777777777" {
		t.Errorf("resolved id %s", id)
	}

	if _, err := svc.ResolveToken("not-a-token"); err == nil {
		t.Fatal("expected error for garbage token")
	} else {
		assertCode(t, err, apperrors.CodeInvalidInput)
	}
}

// --- Cancel ---

func TestCancel(t *testing.T) {
	active := &model.Booking{
		ID:        "88888888-8888-4888-8888-888888888888",
		Facility:  "Gym",
		UserID:    "user-1",
		StartTime: testNow.Add(-10 * time.Minute),
		EndTime:   testNow.Add(50 * time.Minute),
	}

	t.Run("success", func(t *testing.T) {
		var deletedUser string
		repo := &mockBookingRepo{
			findActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (*model.Booking, error) {
				return active, nil
			},
			deleteActiveByUserFn: func(_ context.Context, userID string, _ time.Time) (int64, error) {
				deletedUser = userID
				return 1, nil
			},
		}
		svc, publisher := newTestService(t, repo, &mockLockRepo{})

		if err := svc.Cancel(context.Background(), "user-1"); err != nil {
			t.Fatalf("Cancel returned error: %v", err)
		}
		if deletedUser != "user-1" {
			t.Errorf("deleted bookings for %s, want user-1", deletedUser)
		}
		if len(publisher.cancelled) != 1 || publisher.cancelled[0].ID != active.ID {
			t.Errorf("expected cancelled event for %s, got %+v", active.ID, publisher.cancelled)
		}
	})

	t.Run("no active booking", func(t *testing.T) {
		svc, publisher := newTestService(t, &mockBookingRepo{}, &mockLockRepo{})

		err := svc.Cancel(context.Background(), "user-1")
		assertCode(t, err, apperrors.CodeNoActiveBooking)
		if len(publisher.cancelled) != 0 {
			t.Errorf("expected no events, got %d", len(publisher.cancelled))
		}
	})

	t.Run("booking expired between read and delete", func(t *testing.T) {
		repo := &mockBookingRepo{
			findActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (*model.Booking, error) {
				return active, nil
			},
			deleteActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (int64, error) {
				return 0, nil
			},
		}
		svc, _ := newTestService(t, repo, &mockLockRepo{})

		err := svc.Cancel(context.Background(), "user-1")
		assertCode(t, err, apperrors.CodeNoActiveBooking)
	})

	t.Run("store error", func(t *testing.T) {
		repo := &mockBookingRepo{
			findActiveByUserFn: func(_ context.Context, _ string, _ time.Time) (*model.Booking, error) {
				return nil, errors.New("connection reset")
			},
		}
		svc, _ := newTestService(t, repo, &mockLockRepo{})

		err := svc.Cancel(context.Background(), "user-1")
		assertCode(t, err, apperrors.CodeInternal)
	})
}
