package class

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockClassService struct{ mock.Mock }

func (m *MockClassService) Reserve(ctx context.Context, tenantID string, sessionID, memberID int) (*Reservation, error) {
	args := m.Called(ctx, tenantID, sessionID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockClassService) Cancel(ctx context.Context, tenantID string, reservationID, memberID int) error {
	return m.Called(ctx, tenantID, reservationID, memberID).Error(0)
}

func (m *MockClassService) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockClassService) GetSession(ctx context.Context, tenantID string, sessionID int) (*Session, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockClassService) ListMemberReservations(ctx context.Context, tenantID string, memberID int) ([]Reservation, error) {
	args := m.Called(ctx, tenantID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reservation), args.Error(1)
}

func (m *MockClassService) SessionRoster(ctx context.Context, tenantID string, sessionID int) ([]RosterEntry, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RosterEntry), args.Error(1)
}

func testIdentity(tenantID string, memberID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("tenant_id", tenantID)
		c.Set("member_id", memberID)
		c.Next()
	}
}

func newTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(svc)

	router := gin.New()
	router.Use(testIdentity("gym-1", 7))
	router.POST("/sessions/:sessionID/reserve", handler.Reserve)
	router.POST("/reservations/:reservationID/cancel", handler.Cancel)
	router.GET("/me/reservations", handler.MyReservations)
	return router
}

func TestHandler_Reserve(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "created",
			url:        "/sessions/3/reserve",
			wantStatus: http.StatusCreated,
		},
		{
			name:       "session full",
			url:        "/sessions/3/reserve",
			serviceErr: ErrSessionFull,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "duplicate",
			url:        "/sessions/3/reserve",
			serviceErr: ErrAlreadyReserved,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "not found",
			url:        "/sessions/3/reserve",
			serviceErr: ErrSessionNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad session id",
			url:        "/sessions/zero/reserve",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockClassService)
			if tt.wantStatus != http.StatusBadRequest {
				if tt.serviceErr != nil {
					svc.On("Reserve", mock.Anything, "gym-1", 3, 7).Return(nil, tt.serviceErr)
				} else {
					svc.On("Reserve", mock.Anything, "gym-1", 3, 7).Return(&Reservation{
						ID: 1, SessionID: 3, MemberID: 7, Status: ReservationBooked,
					}, nil)
				}
			}

			router := newTestRouter(svc)

			req := httptest.NewRequest("POST", tt.url, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestHandler_Cancel(t *testing.T) {
	svc := new(MockClassService)
	svc.On("Cancel", mock.Anything, "gym-1", 5, 7).Return(nil)

	router := newTestRouter(svc)

	req := httptest.NewRequest("POST", "/reservations/5/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_Cancel_NotFound(t *testing.T) {
	svc := new(MockClassService)
	svc.On("Cancel", mock.Anything, "gym-1", 5, 7).Return(ErrReservationNotFound)

	router := newTestRouter(svc)

	req := httptest.NewRequest("POST", "/reservations/5/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_MyReservations(t *testing.T) {
	svc := new(MockClassService)
	svc.On("ListMemberReservations", mock.Anything, "gym-1", 7).Return([]Reservation{
		{ID: 1, SessionID: 3, MemberID: 7, Status: ReservationBooked},
	}, nil)

	router := newTestRouter(svc)

	req := httptest.NewRequest("GET", "/me/reservations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "booked")
}
