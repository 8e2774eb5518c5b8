package observe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimMethod(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{
			name:     "GET method with path",
			pattern:  "GET /products",
			expected: "/products",
		},
		{
			name:     "POST method with path",
			pattern:  "POST /cart/items",
			expected: "/cart/items",
		},
		{
			name:     "DELETE method with wildcard",
			pattern:  "DELETE /admin/products/{id}",
			expected: "/admin/products/{id}",
		},
		{
			name:     "path without method",
			pattern:  "/products",
			expected: "/products",
		},
		{
			name:     "invalid method prefix kept",
			pattern:  "INVALID /path",
			expected: "INVALID /path",
		},
		{
			name:     "lowercase method not stripped",
			pattern:  "get /products",
			expected: "get /products",
		},
		{
			name:     "empty string",
			pattern:  "",
			expected: "",
		},
		{
			name:     "method without trailing space",
			pattern:  "GET",
			expected: "GET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimMethod(tt.pattern)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMux_RoutesThroughWrappedMultiplexer(t *testing.T) {
	inner := http.NewServeMux()
	mux := NewMux(inner)

	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products", nil))

	assert.Equal(t, http.StatusTeapot, recorder.Result().StatusCode)
}
