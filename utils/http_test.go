package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"result": "success"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "success", dataMap["result"])
}

func TestWritePaymentRequired(t *testing.T) {
	w := httptest.NewRecorder()

	err := WritePaymentRequired(w, "", map[string]interface{}{"subscription": "expired"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "payment_required", response.Error)
	assert.Equal(t, "Subscription expired", response.Message)
	assert.Equal(t, "expired", response.Details["subscription"])
}

func TestWriteForbidden(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteForbidden(w, "cross-tenant access denied", map[string]interface{}{"id": "o-1"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "forbidden", response.Error)
	assert.Equal(t, "cross-tenant access denied", response.Message)
}

func TestWriteTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteTooManyRequests(w, "", map[string]interface{}{"current": 100, "limit": 100})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "usage_limit_exceeded", response.Error)
}

func TestWriteUnauthorized_DefaultMessage(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteUnauthorized(w, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Authentication required", response.Message)
}
