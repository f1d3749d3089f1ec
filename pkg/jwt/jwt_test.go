package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/csvkit/pkg/logging"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T, expiry time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(testSecret, expiry, logging.NewNopLogger())
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService("short", time.Minute, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newService(t, time.Minute)

	token, err := svc.GenerateToken("reporting")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reporting", claims.ClientID)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateToken_RequiresClientID(t *testing.T) {
	_, err := newService(t, time.Minute).GenerateToken("  ")
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := newService(t, time.Minute)

	sign := func(claims *Claims, method jwt.SigningMethod, key interface{}) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() *Claims {
		return &Claims{
			ClientID: "reporting",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	foreign := valid()
	foreign.Issuer = "someone-else"

	anonymous := valid()
	anonymous.ClientID = ""

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"Empty", "", ErrInvalidToken},
		{"Malformed", "not.a.token", ErrInvalidToken},
		{"Expired", sign(expired, jwt.SigningMethodHS256, []byte(testSecret)), ErrExpiredToken},
		{"Wrong key", sign(valid(), jwt.SigningMethodHS256, []byte("ffffffffffffffffffffffffffffffff")), ErrInvalidSignature},
		{"Unsigned", sign(valid(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType), ErrInvalidToken},
		{"Foreign issuer", sign(foreign, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
		{"Missing client", sign(anonymous, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newService(t, time.Minute)

	router := gin.New()
	router.Use(JWTMiddleware(svc, logging.NewNopLogger()))
	router.GET("/", func(c *gin.Context) {
		id, _ := GetClientID(c)
		c.String(http.StatusOK, id)
	})

	token, err := svc.GenerateToken("reporting")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"Missing header", "", http.StatusUnauthorized},
		{"Wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"Empty bearer", "Bearer ", http.StatusUnauthorized},
		{"Valid", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "reporting", w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}
