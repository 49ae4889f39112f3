package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travel-buddy-server/config"
	"travel-buddy-server/models"
	"travel-buddy-server/repository"
	"travel-buddy-server/scheduler"
	"travel-buddy-server/utils"
)

const secret = "routes-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type mockReader struct {
	mock.Mock
}

func (m *mockReader) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	list, _ := args.Get(0).([]models.Notification)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *mockReader) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReader) MarkAsRead(ctx context.Context, userID, id uint) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockReader) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReader) Delete(ctx context.Context, userID, id uint) error {
	return m.Called(ctx, userID, id).Error(0)
}

type fixedSchedules []scheduler.EntryInfo

func (f fixedSchedules) Entries() []scheduler.EntryInfo { return f }

func testConfig() *config.Config {
	return &config.Config{
		JWT:  config.JWTConfig{Secret: secret},
		CORS: config.CORSConfig{},
	}
}

func newRouter(t *testing.T, deps Dependencies) *gin.Engine {
	t.Helper()
	r := gin.New()
	SetupRoutes(r, testConfig(), deps, zap.NewNop().Sugar())
	return r
}

func authed(t *testing.T, method, target string, userID uint) *http.Request {
	t.Helper()
	token, err := utils.GenerateToken(secret, userID, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetUserNotifications_Paged(t *testing.T) {
	reader := new(mockReader)
	reader.On("ListByUser", mock.Anything, uint(5), 10, 20).
		Return([]models.Notification{{ID: 1, UserID: 5, Content: "hi", Type: models.NotificationSystem}}, int64(21), nil)

	r := newRouter(t, Dependencies{Notifications: reader})
	w := serve(r, authed(t, http.MethodGet, "/api/v1/notifications?page=3&limit=10", 5))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Notifications []models.Notification `json:"notifications"`
		Total         int64                 `json:"total"`
		Page          int                   `json:"page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Notifications, 1)
	assert.Equal(t, int64(21), body.Total)
	assert.Equal(t, 3, body.Page)
	reader.AssertExpectations(t)
}

func TestGetUserNotifications_LimitIsCapped(t *testing.T) {
	reader := new(mockReader)
	reader.On("ListByUser", mock.Anything, uint(5), maxPageSize, 0).Return([]models.Notification{}, int64(0), nil)

	r := newRouter(t, Dependencies{Notifications: reader})
	w := serve(r, authed(t, http.MethodGet, "/api/v1/notifications?limit=1000", 5))
	assert.Equal(t, http.StatusOK, w.Code)
	reader.AssertExpectations(t)
}

func TestGetUserNotifications_BadPage(t *testing.T) {
	r := newRouter(t, Dependencies{Notifications: new(mockReader)})
	w := serve(r, authed(t, http.MethodGet, "/api/v1/notifications?page=0", 5))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserNotifications_PageOutOfRange(t *testing.T) {
	reader := new(mockReader)
	r := newRouter(t, Dependencies{Notifications: reader})

	w := serve(r, authed(t, http.MethodGet, "/api/v1/notifications?page=9223372036854775807&limit=100", 5))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	reader.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPagination_LastPageKeepsPositiveOffset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=21474836&limit=100", nil)

	page, limit, err := pagination(c)
	require.NoError(t, err)
	assert.Positive(t, (page-1)*limit)
}

func TestNotifications_RequireToken(t *testing.T) {
	r := newRouter(t, Dependencies{Notifications: new(mockReader)})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUnreadCount(t *testing.T) {
	reader := new(mockReader)
	reader.On("UnreadCount", mock.Anything, uint(5)).Return(int64(4), nil)

	r := newRouter(t, Dependencies{Notifications: reader})
	w := serve(r, authed(t, http.MethodGet, "/api/v1/notifications/unread-count", 5))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":4}`, w.Body.String())
}

func TestMarkNotificationAsRead(t *testing.T) {
	reader := new(mockReader)
	reader.On("MarkAsRead", mock.Anything, uint(5), uint(9)).Return(nil)
	reader.On("MarkAsRead", mock.Anything, uint(5), uint(10)).Return(errors.WithStack(repository.ErrNotFound))
	reader.On("MarkAsRead", mock.Anything, uint(5), uint(11)).Return(errors.New("connection reset"))

	r := newRouter(t, Dependencies{Notifications: reader})

	tests := []struct {
		target string
		status int
	}{
		{"/api/v1/notifications/9/read", http.StatusOK},
		{"/api/v1/notifications/10/read", http.StatusNotFound},
		{"/api/v1/notifications/11/read", http.StatusInternalServerError},
		{"/api/v1/notifications/abc/read", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := serve(r, authed(t, http.MethodPatch, tt.target, 5))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestMarkAllNotificationsAsRead(t *testing.T) {
	reader := new(mockReader)
	reader.On("MarkAllAsRead", mock.Anything, uint(5)).Return(int64(3), nil)

	r := newRouter(t, Dependencies{Notifications: reader})
	w := serve(r, authed(t, http.MethodPatch, "/api/v1/notifications/read-all", 5))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":3`)
}

func TestDeleteNotification(t *testing.T) {
	reader := new(mockReader)
	reader.On("Delete", mock.Anything, uint(5), uint(9)).Return(nil)
	reader.On("Delete", mock.Anything, uint(5), uint(8)).Return(errors.WithStack(repository.ErrNotFound))

	r := newRouter(t, Dependencies{Notifications: reader})
	assert.Equal(t, http.StatusOK, serve(r, authed(t, http.MethodDelete, "/api/v1/notifications/9", 5)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, authed(t, http.MethodDelete, "/api/v1/notifications/8", 5)).Code)
	reader.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	next := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)
	schedules := fixedSchedules{{Job: "travel_status_update", Spec: "1 0 * * *", Next: next}}

	r := newRouter(t, Dependencies{
		Notifications: new(mockReader),
		Ping:          func(ctx context.Context) error { return nil },
		Schedules:     schedules,
	})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string                `json:"status"`
		Jobs   []scheduler.EntryInfo `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "travel_status_update", body.Jobs[0].Job)
}

func TestHealth_DatabaseDown(t *testing.T) {
	r := newRouter(t, Dependencies{
		Notifications: new(mockReader),
		Ping:          func(ctx context.Context) error { return errors.New("dial tcp: refused") },
	})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
