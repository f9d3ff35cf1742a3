package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestVerifier(t *testing.T) *TokenVerifier {
	v, err := NewTokenVerifier("", zap.NewNop())
	require.NoError(t, err)
	return v
}

func TestTokenRoundTrip(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.IssueToken("user-123", time.Minute)
	require.NoError(t, err)

	uid, err := v.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", uid)
}

func TestVerifyToken_Expired(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.IssueToken("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = v.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyToken_WrongKey(t *testing.T) {
	issuer := newTestVerifier(t)
	verifier := newTestVerifier(t)

	token, err := issuer.IssueToken("user-123", time.Minute)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := newTestVerifier(t)

	r := gin.New()
	r.Use(Middleware(v, zap.NewNop()))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetString(ContextUserIDKey)})
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "unauthenticated")
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := v.IssueToken("user-42", time.Minute)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-42")
	})
}
