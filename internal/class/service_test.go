package class

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymflow/internal/notify"
	"gymflow/internal/waitlist"
)

type MockClassRepo struct{ mock.Mock }

func (m *MockClassRepo) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockClassRepo) GetSession(ctx context.Context, tenantID string, sessionID int) (*Session, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockClassRepo) Reserve(ctx context.Context, tenantID string, sessionID, memberID int) (*Reservation, error) {
	args := m.Called(ctx, tenantID, sessionID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockClassRepo) CancelReservation(ctx context.Context, tenantID string, reservationID, memberID int) (int, error) {
	args := m.Called(ctx, tenantID, reservationID, memberID)
	return args.Int(0), args.Error(1)
}

func (m *MockClassRepo) ListMemberReservations(ctx context.Context, tenantID string, memberID int) ([]Reservation, error) {
	args := m.Called(ctx, tenantID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reservation), args.Error(1)
}

func (m *MockClassRepo) SessionRoster(ctx context.Context, tenantID string, sessionID int) ([]RosterEntry, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RosterEntry), args.Error(1)
}

func (m *MockClassRepo) MemberContact(ctx context.Context, tenantID string, memberID int) (string, string, error) {
	args := m.Called(ctx, tenantID, memberID)
	return args.String(0), args.String(1), args.Error(2)
}

type MockPromoter struct{ mock.Mock }

func (m *MockPromoter) Join(ctx context.Context, tenantID string, sessionID, memberID int) (int, error) {
	args := m.Called(ctx, tenantID, sessionID, memberID)
	return args.Int(0), args.Error(1)
}

func (m *MockPromoter) PromoteNext(ctx context.Context, tenantID string, sessionID int) (*waitlist.Promotion, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*waitlist.Promotion), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Queue(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestService_Reserve(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockClassRepo, *MockNotifier)
		wantErr    error
	}{
		{
			name: "successful reservation",
			setupMocks: func(repo *MockClassRepo, n *MockNotifier) {
				repo.On("Reserve", mock.Anything, "gym-1", 3, 7).Return(&Reservation{
					ID: 1, TenantID: "gym-1", SessionID: 3, MemberID: 7, Status: ReservationBooked,
				}, nil)
				repo.On("MemberContact", mock.Anything, "gym-1", 7).Return("+549115555", "Ana", nil)
				n.On("Queue", mock.Anything, mock.MatchedBy(func(msg notify.Message) bool {
					return msg.Kind == notify.KindBookingConfirmed
				})).Return(nil)
			},
		},
		{
			name: "session full",
			setupMocks: func(repo *MockClassRepo, n *MockNotifier) {
				repo.On("Reserve", mock.Anything, "gym-1", 3, 7).Return(nil, ErrSessionFull)
			},
			wantErr: ErrSessionFull,
		},
		{
			name: "duplicate reservation",
			setupMocks: func(repo *MockClassRepo, n *MockNotifier) {
				repo.On("Reserve", mock.Anything, "gym-1", 3, 7).Return(nil, ErrAlreadyReserved)
			},
			wantErr: ErrAlreadyReserved,
		},
		{
			name: "inactive session",
			setupMocks: func(repo *MockClassRepo, n *MockNotifier) {
				repo.On("Reserve", mock.Anything, "gym-1", 3, 7).Return(nil, ErrSessionInactive)
			},
			wantErr: ErrSessionInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockClassRepo)
			promoter := new(MockPromoter)
			n := new(MockNotifier)
			tt.setupMocks(repo, n)

			svc := NewService(repo, promoter, n)

			reservation, err := svc.Reserve(context.Background(), "gym-1", 3, 7)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, reservation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ReservationBooked, reservation.Status)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Cancel_PromotesFromWaitlist(t *testing.T) {
	repo := new(MockClassRepo)
	promoter := new(MockPromoter)
	n := new(MockNotifier)

	repo.On("CancelReservation", mock.Anything, "gym-1", 5, 7).Return(3, nil)
	promoter.On("PromoteNext", mock.Anything, "gym-1", 3).Return(&waitlist.Promotion{
		MemberID:      9,
		ReservationID: 12,
	}, nil)

	svc := NewService(repo, promoter, n)

	err := svc.Cancel(context.Background(), "gym-1", 5, 7)

	assert.NoError(t, err)
	promoter.AssertExpectations(t)
}

func TestService_Cancel_PromotionFailureDoesNotFailCancel(t *testing.T) {
	repo := new(MockClassRepo)
	promoter := new(MockPromoter)
	n := new(MockNotifier)

	repo.On("CancelReservation", mock.Anything, "gym-1", 5, 7).Return(3, nil)
	promoter.On("PromoteNext", mock.Anything, "gym-1", 3).Return(nil, errors.New("db down"))

	svc := NewService(repo, promoter, n)

	err := svc.Cancel(context.Background(), "gym-1", 5, 7)

	assert.NoError(t, err)
}

func TestService_Cancel_NotFound(t *testing.T) {
	repo := new(MockClassRepo)
	promoter := new(MockPromoter)
	n := new(MockNotifier)

	repo.On("CancelReservation", mock.Anything, "gym-1", 5, 7).Return(0, ErrReservationNotFound)

	svc := NewService(repo, promoter, n)

	err := svc.Cancel(context.Background(), "gym-1", 5, 7)

	assert.ErrorIs(t, err, ErrReservationNotFound)
	promoter.AssertNotCalled(t, "PromoteNext", mock.Anything, mock.Anything, mock.Anything)
}

// fakeGym holds shared session, reservation and waitlist state so the
// reserve/cancel/promote flow can run against one consistent world.
type fakeGym struct {
	capacity      int
	reservedCount int
	nextID        int
	reservations  map[int]*Reservation
	waiting       []int
}

func (g *fakeGym) booked(memberID int) *Reservation {
	for _, r := range g.reservations {
		if r.MemberID == memberID && r.Status == ReservationBooked {
			return r
		}
	}
	return nil
}

func (g *fakeGym) book(sessionID, memberID int) *Reservation {
	g.nextID++
	r := &Reservation{
		ID:        g.nextID,
		TenantID:  "gym-1",
		SessionID: sessionID,
		MemberID:  memberID,
		Status:    ReservationBooked,
	}
	g.reservations[r.ID] = r
	g.reservedCount++
	return r
}

type fakeClassRepo struct{ gym *fakeGym }

func (f *fakeClassRepo) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	return session, nil
}

func (f *fakeClassRepo) GetSession(ctx context.Context, tenantID string, sessionID int) (*Session, error) {
	return &Session{ID: sessionID, Capacity: f.gym.capacity, ReservedCount: f.gym.reservedCount, Active: true}, nil
}

func (f *fakeClassRepo) Reserve(ctx context.Context, tenantID string, sessionID, memberID int) (*Reservation, error) {
	if f.gym.booked(memberID) != nil {
		return nil, ErrAlreadyReserved
	}
	if f.gym.reservedCount >= f.gym.capacity {
		return nil, ErrSessionFull
	}
	return f.gym.book(sessionID, memberID), nil
}

func (f *fakeClassRepo) CancelReservation(ctx context.Context, tenantID string, reservationID, memberID int) (int, error) {
	r, ok := f.gym.reservations[reservationID]
	if !ok || r.MemberID != memberID || r.Status != ReservationBooked {
		return 0, ErrReservationNotFound
	}
	r.Status = ReservationCancelled
	if f.gym.reservedCount > 0 {
		f.gym.reservedCount--
	}
	return r.SessionID, nil
}

func (f *fakeClassRepo) ListMemberReservations(ctx context.Context, tenantID string, memberID int) ([]Reservation, error) {
	return nil, nil
}

func (f *fakeClassRepo) SessionRoster(ctx context.Context, tenantID string, sessionID int) ([]RosterEntry, error) {
	return nil, nil
}

func (f *fakeClassRepo) MemberContact(ctx context.Context, tenantID string, memberID int) (string, string, error) {
	return "+549115555", "Member", nil
}

type fakeWaitlistRepo struct{ gym *fakeGym }

func (f *fakeWaitlistRepo) Append(ctx context.Context, tenantID string, sessionID, memberID int) (*waitlist.Entry, error) {
	f.gym.waiting = append(f.gym.waiting, memberID)
	return &waitlist.Entry{ID: len(f.gym.waiting), SessionID: sessionID, MemberID: memberID}, nil
}

func (f *fakeWaitlistRepo) HasEntry(ctx context.Context, tenantID string, sessionID, memberID int) (bool, error) {
	for _, id := range f.gym.waiting {
		if id == memberID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWaitlistRepo) HasActiveReservation(ctx context.Context, tenantID string, sessionID, memberID int) (bool, error) {
	return f.gym.booked(memberID) != nil, nil
}

func (f *fakeWaitlistRepo) PromoteNext(ctx context.Context, tenantID string, sessionID int) (*waitlist.Promotion, error) {
	if len(f.gym.waiting) == 0 {
		return nil, waitlist.ErrEmptyWaitlist
	}
	memberID := f.gym.waiting[0]
	f.gym.waiting = f.gym.waiting[1:]
	r := f.gym.book(sessionID, memberID)
	return &waitlist.Promotion{MemberID: memberID, ReservationID: r.ID}, nil
}

func (f *fakeWaitlistRepo) CountForSession(ctx context.Context, tenantID string, sessionID int) (int, error) {
	return len(f.gym.waiting), nil
}

func TestService_ReserveCancelPromoteFlow(t *testing.T) {
	gym := &fakeGym{capacity: 1, reservations: map[int]*Reservation{}}
	n := new(MockNotifier)
	n.On("Queue", mock.Anything, mock.Anything).Return(nil)

	promoter := waitlist.NewService(&fakeWaitlistRepo{gym: gym}, n)
	svc := NewService(&fakeClassRepo{gym: gym}, promoter, n)

	ctx := context.Background()

	// First member takes the only slot.
	first, err := svc.Reserve(ctx, "gym-1", 3, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, gym.reservedCount)

	// Second member bounces off the full session and waits.
	_, err = svc.Reserve(ctx, "gym-1", 3, 8)
	assert.ErrorIs(t, err, ErrSessionFull)

	length, err := promoter.Join(ctx, "gym-1", 3, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	// Cancelling the first reservation promotes the waiting member; the
	// slot count never moves past the capacity or below zero.
	require.NoError(t, svc.Cancel(ctx, "gym-1", first.ID, 7))
	assert.Equal(t, 1, gym.reservedCount)
	assert.Empty(t, gym.waiting)

	promoted := gym.booked(8)
	require.NotNil(t, promoted)

	// The promoted member cancels with nobody waiting behind them.
	require.NoError(t, svc.Cancel(ctx, "gym-1", promoted.ID, 8))
	assert.Equal(t, 0, gym.reservedCount)
}

func TestService_CreateSession_Validation(t *testing.T) {
	svc := NewService(new(MockClassRepo), new(MockPromoter), new(MockNotifier))

	_, err := svc.CreateSession(context.Background(), &Session{
		Name:      "Spin",
		StartTime: time.Now().Add(24 * time.Hour),
		Capacity:  0,
	})
	assert.Error(t, err)

	_, err = svc.CreateSession(context.Background(), &Session{
		Name:      "Spin",
		StartTime: time.Now().Add(-time.Hour),
		Capacity:  10,
	})
	assert.Error(t, err)
}
