package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/config"
	"github.com/iliyamo/expo-appointments/internal/utils"
)

const testSecret = "test-secret"

func whoami(c echo.Context) error {
	id, ok := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c)})
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(testSecret))

	tok, err := utils.NewAccessToken(testSecret, 42, "USER", 5*time.Minute)
	require.NoError(t, err)
	rec := serve(e, http.MethodGet, "/me", tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"ok":true,"role":"USER"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)

	bad, err := utils.NewAccessToken("other-secret", 42, "USER", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", bad.Token).Code)

	expired, err := utils.NewAccessToken(testSecret, 42, "USER", -5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", expired.Token).Code)
}

func TestJWTAuthStringSubject(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(testSecret))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7", "role": "EXHIBITOR", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	rec := serve(e, http.MethodGet, "/me", signed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"ok":true,"role":"EXHIBITOR"}`, rec.Body.String())

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "USER", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", noSub).Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/exhibitor", whoami, JWTAuth(testSecret), RequireRole("EXHIBITOR"))

	user, _ := utils.NewAccessToken(testSecret, 1, "USER", 5*time.Minute)
	exhibitor, _ := utils.NewAccessToken(testSecret, 70, "EXHIBITOR", 5*time.Minute)

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/exhibitor", user.Token).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/exhibitor", exhibitor.Token).Code)
}

func rateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Hour, KeyStrategy: "ip_user_route", Prefix: "rl",
	}
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(rateConfig(), nil, zap.NewNop()))

	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/book", "").Code)
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/book", "").Code)

	rec := serve(e, http.MethodPost, "/book", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOverWhenRedisErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()
	// no expectations: every script call fails

	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(rateConfig(), db, zap.NewNop()))
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/book", "").Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := rateConfig()
	cfg.Enabled = false
	e := echo.New()
	e.POST("/book", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, nil, zap.NewNop()))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/book", "").Code)
	}
}

func TestParseBucketResult(t *testing.T) {
	d, err := parseBucketResult([]any{int64(1), int64(4), int64(0)})
	require.NoError(t, err)
	assert.True(t, d.allowed)
	assert.Equal(t, int64(4), d.remaining)

	d, err = parseBucketResult([]any{int64(0), int64(0), int64(1500)})
	require.NoError(t, err)
	assert.False(t, d.allowed)
	assert.Equal(t, int64(1500), d.retryMs)

	_, err = parseBucketResult("nope")
	assert.Error(t, err)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(ctxUserID, uint64(5))

	cfg := rateConfig()
	assert.Equal(t, "rl:ip:10.0.0.9:user:5:route:POST /v1/bookings", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:5", buildRateKey(cfg, c))
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache"}
}

func TestCacheServesHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	e := echo.New()
	called := false
	e.GET("/v1/exhibitors/:id/availability", func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "fresh")
	}, NewRedisCache(cacheConfig(), db, zap.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/v1/exhibitors/7/availability?from=2025-03-01", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/exhibitors/:id/availability")
	key := cacheKeyFrom(cacheConfig(), c)

	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{"cached":true}`))
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.False(t, called)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"cached":true}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKeyDistinguishesIDs(t *testing.T) {
	e := echo.New()
	key := func(path string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath("/v1/exhibitors/:id/availability")
		return cacheKeyFrom(cacheConfig(), c)
	}
	assert.NotEqual(t, key("/v1/exhibitors/7/availability"), key("/v1/exhibitors/8/availability"))
	assert.Equal(t, key("/v1/exhibitors/7/availability"), key("/v1/exhibitors/7/availability"))
}

func TestCacheKeyDistinguishesLanguage(t *testing.T) {
	e := echo.New()
	key := func(lang string) string {
		req := httptest.NewRequest(http.MethodGet, "/v1/exhibitors/7/availability?format=events", nil)
		req.Header.Set("Accept-Language", lang)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/exhibitors/:id/availability")
		return cacheKeyFrom(cacheConfig(), c)
	}
	assert.NotEqual(t, key("en-US"), key("ar-SA"))
	assert.Equal(t, key("en-US"), key("fr"))
}

func TestCacheKeyAlwaysDistinguishesQuery(t *testing.T) {
	e := echo.New()
	for _, strategy := range []string{"route", "method_route", "route_query", "method_route_query"} {
		cfg := cacheConfig()
		cfg.KeyStrategy = strategy
		key := func(query string) string {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/exhibitors/7/availability"+query, nil), httptest.NewRecorder())
			c.SetPath("/v1/exhibitors/:id/availability")
			return cacheKeyFrom(cfg, c)
		}
		assert.NotEqual(t, key("?from=2025-03-01"), key("?from=2025-04-01"), strategy)
		assert.NotEqual(t, key(""), key("?format=events"), strategy)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"text/calendar"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte("BODY"))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, "BODY", string(body))

	_, _, _, ok = decodePayload([]byte{1, 2})
	assert.False(t, ok)
}
