package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger routes the global logger through the test log, so log output is
// attached to the test that produced it.
func SetupLogger(t *testing.T) {
	t.Helper()

	log.Logger = zerolog.New(zerolog.NewTestWriter(t))
}

// WriteJSON is a helper function that writes a JSON response. It sets the
// Content-Type header and marshals the payload to JSON.
func WriteJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		// In test context, this should never happen with valid test data
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}
