package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DMarby/photo-editor/internal/handler"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		Name            string
		Method          string
		Headers         map[string]string
		ExpectedHeaders map[string]string
	}{
		{
			Name:   "sets correct headers for non-option requests",
			Method: "GET",
			Headers: map[string]string{
				"Origin": "http://www.example.com",
			},
			ExpectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":   "*",
				"Access-Control-Expose-Headers": "X-Request-Id",
			},
		},
		{
			Name:   "responds correctly to option request",
			Method: "OPTIONS",
			Headers: map[string]string{
				"Origin":                        "http://www.example.com",
				"Access-Control-Request-Method": "POST",
			},
			ExpectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":  "*",
				"Access-Control-Allow-Methods": "POST",
			},
		},
		{
			Name:   "rejects option request with a method that is not allowed",
			Method: "OPTIONS",
			Headers: map[string]string{
				"Origin":                        "http://www.example.com",
				"Access-Control-Request-Method": "PATCH",
			},
			ExpectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":  "",
				"Access-Control-Allow-Methods": "",
			},
		},
	}

	for _, test := range tests {
		r, err := http.NewRequest(test.Method, "http://www.example.com/", nil)
		if err != nil {
			t.Errorf("%s: %s", test.Name, err)
			continue
		}

		for header, value := range test.Headers {
			r.Header.Set(header, value)
		}

		rr := httptest.NewRecorder()
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

		handler.CORS([]string{"X-Request-Id"}, []string{"GET", "POST", "PUT", "DELETE"}, testHandler).ServeHTTP(rr, r)

		for expectedHeader, expectedValue := range test.ExpectedHeaders {
			headerValue := rr.Header().Get(expectedHeader)
			if headerValue != expectedValue {
				t.Errorf("%s: wrong header value for %s, %#v", test.Name, expectedHeader, headerValue)
			}
		}
	}
}
