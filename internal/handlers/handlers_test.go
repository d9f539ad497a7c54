package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"care-portal-server/internal/goals"

	"github.com/gin-gonic/gin"
)

func TestRespondGoalError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		want int
	}{
		{goals.ErrGoalNotFound, http.StatusNotFound},
		{goals.ErrPatientNotFound, http.StatusNotFound},
		{goals.ErrNotAssigned, http.StatusForbidden},
		{goals.ErrNotGoalOwner, http.StatusForbidden},
		{goals.ErrGoalNotActive, http.StatusBadRequest},
		{goals.ErrGoalCompleted, http.StatusBadRequest},
		{goals.ErrInvalidFrequency, http.StatusBadRequest},
		{goals.ErrAlreadyLoggedToday, http.StatusConflict},
		{fmt.Errorf("log entry: %w", goals.ErrAlreadyLoggedToday), http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		respondGoalError(c, tt.err)
		if w.Code != tt.want {
			t.Errorf("respondGoalError(%v) status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestUUIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"3F2504E0-4F89-11D3-9A0C-0305E82C3301", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", true},
		{"not-a-uuid", "", false},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: tt.raw}}

		got, ok := uuidParam(c, "id", "Goal")
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("uuidParam(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
		if !ok && w.Code != http.StatusBadRequest {
			t.Errorf("uuidParam(%q) status = %d, want 400", tt.raw, w.Code)
		}
	}
}
