package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := AuthMiddleware(ok)

	tests := []struct {
		name   string
		path   string
		cookie string
		want   int
	}{
		{"login page is public", "/login", "", http.StatusTeapot},
		{"metrics are public", "/metrics", "", http.StatusTeapot},
		{"api without cookie", "/api/intruders", "", http.StatusUnauthorized},
		{"page without cookie", "/video_feed", "", http.StatusSeeOther},
		{"wrong cookie value", "/video_feed", "false", http.StatusSeeOther},
		{"with cookie", "/video_feed", "true", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("got %d want %d", rec.Code, tt.want)
			}
		})
	}
}
