package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected int
	}{
		{"无可行解", Unplaceable("E1"), http.StatusUnprocessableEntity},
		{"超出容量", CapacityExceeded(1, 3, 2), http.StatusUnprocessableEntity},
		{"ID重复", DuplicateID("人员", "E1"), http.StatusBadRequest},
		{"配置无效", InvalidConfig("weeks"), http.StatusBadRequest},
		{"不存在", NotFound("排班", "x"), http.StatusNotFound},
		{"数据库", New(CodeDatabaseError, "db"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.expected {
				t.Errorf("HTTPStatus = %d, expected %d", tt.err.HTTPStatus, tt.expected)
			}
		})
	}
}

func TestUnplaceable(t *testing.T) {
	err := Unplaceable("E7")
	assert.Equal(t, "No valid line for E7: coworker constraints cannot be satisfied", err.Message)
	assert.Equal(t, "E7", err.Fields["person_id"])
}

func TestWrappedCode(t *testing.T) {
	base := CapacityExceeded(2, 5, 4)
	wrapped := fmt.Errorf("构建失败: %w", base)

	assert.True(t, Is(wrapped, CodeCapacityExceeded))
	assert.Equal(t, CodeCapacityExceeded, GetCode(wrapped))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(wrapped))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
}

func TestValidationErrors(t *testing.T) {
	var ve ValidationErrors
	assert.False(t, ve.HasErrors())

	ve.Add("weeks", "必须大于0")
	assert.True(t, ve.HasErrors())

	appErr := ve.ToAppError()
	assert.Equal(t, CodeValidationFail, appErr.Code)
	assert.Equal(t, "必须大于0", appErr.Fields["weeks"])
}
