package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/gamecore/internal/middleware"
	"github.com/temcen/gamecore/pkg/models"
)

type MockUsageReader struct {
	mock.Mock
}

func (m *MockUsageReader) UsageForKey(ctx context.Context, keyID uuid.UUID, since time.Time) ([]models.UsageRecord, error) {
	args := m.Called(ctx, keyID, since)
	if r := args.Get(0); r != nil {
		return r.([]models.UsageRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUsageHandler_Get(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	since := now.AddDate(0, 0, -30)
	keyID := uuid.New()
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		attachKey      bool
		mockSetup      func(*MockUsageReader)
		expectedStatus int
		expectedCount  int
	}{
		{
			name:      "lists usage",
			attachKey: true,
			mockSetup: func(m *MockUsageReader) {
				m.On("UsageForKey", mock.Anything, keyID, since).Return([]models.UsageRecord{
					{APIKeyID: keyID, Endpoint: "/api/v1/usage", Date: day, CallsCount: 3},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name:      "no usage yet",
			attachKey: true,
			mockSetup: func(m *MockUsageReader) {
				m.On("UsageForKey", mock.Anything, keyID, since).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  0,
		},
		{
			name:      "store failure",
			attachKey: true,
			mockSetup: func(m *MockUsageReader) {
				m.On("UsageForKey", mock.Anything, keyID, since).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "no key attached",
			mockSetup:      func(m *MockUsageReader) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockUsageReader)
			tt.mockSetup(reader)
			handler := NewUsageHandler(newTestLogger(), reader)
			handler.now = func() time.Time { return now }

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
			if tt.attachKey {
				c.Set(middleware.APIKeyKey, &models.APIKey{ID: keyID, IsActive: true})
			}

			handler.Get(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var body struct {
					APIKeyID uuid.UUID            `json:"api_key_id"`
					Since    string               `json:"since"`
					Usage    []models.UsageRecord `json:"usage"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, keyID, body.APIKeyID)
				assert.Equal(t, "2026-09-14", body.Since)
				assert.NotNil(t, body.Usage)
				assert.Len(t, body.Usage, tt.expectedCount)
			}
			reader.AssertExpectations(t)
		})
	}
}
