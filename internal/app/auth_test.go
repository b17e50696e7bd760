package app

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protected(password string) *gin.Engine {
	r := gin.New()
	r.GET("/metrics", basicAuthMiddleware("metrics", "prometheus", password), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})
	return r
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestBasicAuthMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		header   string
		want     int
	}{
		{"open without password", "", "", http.StatusOK},
		{"open ignores header", "", "Bearer sometoken", http.StatusOK},
		{"valid", "secret123", basic("prometheus", "secret123"), http.StatusOK},
		{"no header", "secret123", "", http.StatusUnauthorized},
		{"wrong username", "secret123", basic("wronguser", "secret123"), http.StatusUnauthorized},
		{"wrong password", "secret123", basic("prometheus", "wrongpass"), http.StatusUnauthorized},
		{"password prefix", "secret123", basic("prometheus", "secret"), http.StatusUnauthorized},
		{"only scheme", "secret123", "Basic", http.StatusUnauthorized},
		{"invalid base64", "secret123", "Basic notbase64!!!", http.StatusUnauthorized},
		{"bearer", "secret123", "Bearer sometoken", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protected(tt.password).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "metrics", w.Body.String())
				assert.Empty(t, w.Header().Get("WWW-Authenticate"))
			} else {
				assert.Equal(t, `Basic realm="metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
