package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func runMiddleware(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(testSecret)(func(c echo.Context) error {
		return c.String(http.StatusOK, PlayerID(c)+"/"+PlayerName(c))
	})
	return rec, handler(c)
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	token, err := GenerateToken("p-123", "Dana", testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, err := runMiddleware(t, req)
	require.NoError(t, err)
	assert.Equal(t, "p-123/Dana", rec.Body.String())
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	token, err := GenerateToken("p-456", "Noa", testSecret, time.Hour)
	require.NoError(t, err)

	// The websocket upgrade path cannot set headers.
	req := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec, err := runMiddleware(t, req)
	require.NoError(t, err)
	assert.Equal(t, "p-456/Noa", rec.Body.String())
}

func TestMiddlewareRejections(t *testing.T) {
	expired, err := GenerateToken("p-1", "Old", testSecret, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := GenerateToken("p-1", "Who", "another-secret", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"missing token", func(*http.Request) {}, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer") }, http.StatusUnauthorized},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") }, http.StatusUnauthorized},
		{"expired token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, http.StatusUnauthorized},
		{"wrong key", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+wrongKey) }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			_, err := runMiddleware(t, req)
			require.Error(t, err)
			httpErr, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tc.status, httpErr.Code)
		})
	}
}

func TestPlayerHelpersWithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Empty(t, PlayerID(c))
	assert.Empty(t, PlayerName(c))
}
