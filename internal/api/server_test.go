package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/config"
	"github.com/JakeFAU/profile-screener/internal/profile"
)

const testProfileURL = "https://www.linkedin.com/in/jane-doe/"

type fakeScreener struct {
	mu     sync.Mutex
	result profile.Result
	err    error
	panic  bool
	block  bool
	calls  []screenCall
}

type screenCall struct {
	url   string
	creds *profile.Credentials
}

func (f *fakeScreener) Screen(ctx context.Context, url string) (profile.Result, error) {
	return f.record(ctx, url, nil)
}

func (f *fakeScreener) ScreenWithCredentials(ctx context.Context, url string, creds profile.Credentials) (profile.Result, error) {
	return f.record(ctx, url, &creds)
}

func (f *fakeScreener) record(ctx context.Context, url string, creds *profile.Credentials) (profile.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, screenCall{url: url, creds: creds})
	f.mu.Unlock()
	if f.panic {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return profile.Result{}, fmt.Errorf("screen: %w", ctx.Err())
	}
	return f.result, f.err
}

func (f *fakeScreener) Calls() []screenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]screenCall(nil), f.calls...)
}

func testConfig() config.Config {
	return config.Config{
		Server:    config.ServerConfig{Port: 8080, RequestTimeout: time.Minute},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
	}
}

func sampleResult() profile.Result {
	return profile.NewResult(
		profile.Record{Name: "Jane Doe", Headline: "Engineer", Skills: []string{"Go"}},
		profile.ScoreResult{Score: 42, Analysis: "Moderate candidate"},
	)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeScreener{}, testConfig(), zap.NewNop())
	rec := do(t, server.Handler(), http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeScreener{}, testConfig(), zap.NewNop())
	require.Equal(t, http.StatusOK, do(t, server.Handler(), http.MethodGet, "/readyz", "").Code)

	unready := NewServer(nil, testConfig(), zap.NewNop())
	require.Equal(t, http.StatusServiceUnavailable, do(t, unready.Handler(), http.MethodGet, "/readyz", "").Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeScreener{}, testConfig(), zap.NewNop())
	rec := do(t, server.Handler(), http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeScreener{}, testConfig(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_ScreenProfile_WithCredentials(t *testing.T) {
	t.Parallel()

	screener := &fakeScreener{result: sampleResult()}
	server := NewServer(screener, testConfig(), zap.NewNop())
	body := fmt.Sprintf(`{"linkedinUrl":%q,"credentials":{"email":"jane@example.com","password":"secret1"}}`, testProfileURL)

	rec := do(t, server.Handler(), http.MethodPost, "/v1/profile", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp successResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Jane Doe", resp.Data.Name)
	require.Equal(t, 42, resp.Data.Score)

	calls := screener.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, testProfileURL, calls[0].url)
	require.NotNil(t, calls[0].creds)
	require.Equal(t, "jane@example.com", calls[0].creds.Email)
}

func TestServer_ScreenProfile_FlattensResult(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeScreener{result: sampleResult()}, testConfig(), zap.NewNop())
	rec := do(t, server.Handler(), http.MethodPost, "/v1/profile", fmt.Sprintf(`{"linkedinUrl":%q}`, testProfileURL))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var data map[string]any
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	require.Contains(t, data, "name")
	require.Contains(t, data, "score")
	require.Contains(t, data, "analysis")
}

func TestServer_ScreenProfileByQuery(t *testing.T) {
	t.Parallel()

	screener := &fakeScreener{result: sampleResult()}
	server := NewServer(screener, testConfig(), zap.NewNop())
	rec := do(t, server.Handler(), http.MethodGet, "/v1/profile?url="+testProfileURL, "")

	require.Equal(t, http.StatusOK, rec.Code)
	calls := screener.Calls()
	require.Len(t, calls, 1)
	require.Nil(t, calls[0].creds)
}

func TestServer_ScreenProfile_Validation(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"invalid json":   "{invalid",
		"missing url":    `{}`,
		"not a url":      `{"linkedinUrl":"not a url"}`,
		"not a profile":  `{"linkedinUrl":"https://example.com/in/jane"}`,
		"bad email":      fmt.Sprintf(`{"linkedinUrl":%q,"credentials":{"email":"jane","password":"secret1"}}`, testProfileURL),
		"named email":    fmt.Sprintf(`{"linkedinUrl":%q,"credentials":{"email":"Jane <jane@example.com>","password":"secret1"}}`, testProfileURL),
		"short password": fmt.Sprintf(`{"linkedinUrl":%q,"credentials":{"email":"jane@example.com","password":"12345"}}`, testProfileURL),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			screener := &fakeScreener{}
			server := NewServer(screener, testConfig(), zap.NewNop())
			rec := do(t, server.Handler(), http.MethodPost, "/v1/profile", body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			require.False(t, resp.Success)
			require.Equal(t, kindValidation, resp.Kind)
			require.Empty(t, screener.Calls())
		})
	}
}

func TestServer_ScreenProfile_ErrorStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		kind   profile.ErrorKind
	}{
		{profile.NewError(profile.KindLoginRequired, "login required", nil), http.StatusUnauthorized, profile.KindLoginRequired},
		{profile.NewError(profile.KindLoginFailed, "login failed", nil), http.StatusUnauthorized, profile.KindLoginFailed},
		{profile.NewError(profile.KindExtraction, "no profile", nil), http.StatusNotFound, profile.KindExtraction},
		{profile.NewError(profile.KindSecurityChallenge, "blocked", nil), http.StatusServiceUnavailable, profile.KindSecurityChallenge},
		{profile.NewError(profile.KindCapacity, "busy", nil), http.StatusServiceUnavailable, profile.KindCapacity},
		{profile.NewError(profile.KindNavigation, "timeout", nil), http.StatusGatewayTimeout, profile.KindNavigation},
		{errors.New("boom"), http.StatusInternalServerError, profile.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			t.Parallel()

			server := NewServer(&fakeScreener{err: tc.err}, testConfig(), zap.NewNop())
			rec := do(t, server.Handler(), http.MethodGet, "/v1/profile?url="+testProfileURL, "")

			require.Equal(t, tc.status, rec.Code)
			resp := decodeError(t, rec)
			require.False(t, resp.Success)
			require.Equal(t, string(tc.kind), resp.Kind)
		})
	}
}

func TestServer_ErrorMessageHidesCause(t *testing.T) {
	t.Parallel()

	err := profile.NewError(profile.KindNavigation, "navigation failed", errors.New("net::ERR_CONNECTION_RESET at ws://127.0.0.1:9222"))
	server := NewServer(&fakeScreener{err: err}, testConfig(), zap.NewNop())
	rec := do(t, server.Handler(), http.MethodGet, "/v1/profile?url="+testProfileURL, "")

	resp := decodeError(t, rec)
	require.Equal(t, "navigation failed", resp.Error)
	require.NotContains(t, rec.Body.String(), "9222")
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Requests: 2, Window: time.Hour}
	server := NewServer(&fakeScreener{result: sampleResult()}, cfg, zap.NewNop())
	target := "/v1/profile?url=" + testProfileURL

	require.Equal(t, http.StatusOK, do(t, server.Handler(), http.MethodGet, target, "").Code)
	require.Equal(t, http.StatusOK, do(t, server.Handler(), http.MethodGet, target, "").Code)
	require.Equal(t, http.StatusTooManyRequests, do(t, server.Handler(), http.MethodGet, target, "").Code)

	// Probes are not rate limited.
	require.Equal(t, http.StatusOK, do(t, server.Handler(), http.MethodGet, "/healthz", "").Code)
}

func TestServer_BasicAuth(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, Username: "ops", Password: "hunter22"}
	server := NewServer(&fakeScreener{result: sampleResult()}, cfg, zap.NewNop())
	target := "/v1/profile?url=" + testProfileURL

	require.Equal(t, http.StatusUnauthorized, do(t, server.Handler(), http.MethodGet, target, "").Code)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.SetBasicAuth("ops", "hunter22")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusOK, do(t, server.Handler(), http.MethodGet, "/healthz", "").Code)
}

func TestServer_RecoversPanics(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeScreener{panic: true}, testConfig(), zap.NewNop())
	rec := do(t, server.Handler(), http.MethodGet, "/v1/profile?url="+testProfileURL, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestServer_RequestTimeout(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.RequestTimeout = 50 * time.Millisecond
	server := NewServer(&fakeScreener{block: true}, cfg, zap.NewNop())
	rec := do(t, server.Handler(), http.MethodGet, "/v1/profile?url="+testProfileURL, "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeError(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "request timed out", resp.Error)
}

func TestStatusForUnlistedKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusInternalServerError, statusFor(profile.ErrorKind("Other")))
}
