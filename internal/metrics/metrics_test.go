package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugVarsExposesCounters(t *testing.T) {
	before := SignalsReceived.Value()
	SignalsReceived.Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var vars map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vars))
	assert.EqualValues(t, before+3, vars["signals_received"])
	assert.Contains(t, vars, "invariant_violations")

	assert.Equal(t, before+3, Snapshot()["signals_received"])
}
