package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	HandleError(c, err)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleError_AppError(t *testing.T) {
	w, body := render(t, ErrReviewPageNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["error"]["code"])
	assert.Equal(t, "Review page not found", body["error"]["message"])
}

func TestHandleError_PlainErrorBecomesInternal(t *testing.T) {
	SetDebug(false)
	defer SetDebug(true)

	w, body := render(t, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body["error"]["code"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestWithDetails_DoesNotMutatePredefined(t *testing.T) {
	withDetails := ErrRatingRequired.WithDetails(map[string]string{"rating": "required"})

	assert.Nil(t, ErrRatingRequired.Details)
	assert.NotNil(t, withDetails.Details)
	assert.Equal(t, ErrRatingRequired.Message, withDetails.Message)
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := ErrConflict(errors.New("dup"), "tenant", "Slug already in use")
	err := errors.Join(errors.New("context"), wrapped)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.HTTPCode)
}
