package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/ratelimit"
	"github.com/dmitrijs2005/quickmart/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	login   func(identifier, password string) (*services.TokenPair, error)
	verify  func(token string) (*models.Identity, error)
	refresh func(token string) (*services.TokenPair, error)

	registered   []string
	verifiedCode string
	forgotEmail  string
	changed      []string
}

func (f *fakeAuth) Login(_ context.Context, identifier, password string) (*services.TokenPair, error) {
	return f.login(identifier, password)
}

func (f *fakeAuth) Register(_ context.Context, fullname, username, email, password, confirm string) (*services.TokenPair, error) {
	f.registered = []string{fullname, username, email, password, confirm}
	return &services.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeAuth) Verify(_ context.Context, token string) (*models.Identity, error) {
	return f.verify(token)
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*services.TokenPair, error) {
	return f.refresh(token)
}

func (f *fakeAuth) SendVerifyEmailOTP(context.Context, string) error { return nil }

func (f *fakeAuth) VerifyEmailOTP(_ context.Context, _ string, code string) error {
	f.verifiedCode = code
	if code != "123456" {
		return services.ErrInvalidOtp
	}
	return nil
}

func (f *fakeAuth) SendEmailForgotPasswordOTP(_ context.Context, email string) error {
	f.forgotEmail = email
	return services.ErrSendEmail
}

func (f *fakeAuth) VerifyForgotPasswordOTP(_ context.Context, _, _ string) (string, error) {
	return "otp-1", nil
}

func (f *fakeAuth) ChangeForgottenPassword(_ context.Context, otpID, password, confirm string) error {
	f.changed = []string{otpID, password, confirm}
	return nil
}

type fakeUsers struct {
	profile     *services.Profile
	patch       services.ProfilePatch
	picture     []byte
	pictureType string
	deleted     string
}

func (f *fakeUsers) GetMe(context.Context, string) (*services.Profile, error) {
	return f.profile, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, _ string, patch services.ProfilePatch) (*services.Profile, error) {
	f.patch = patch
	return f.profile, nil
}

func (f *fakeUsers) CheckPassword(_ context.Context, _ string, password string) error {
	if password != "secret12" {
		return services.ErrWrongPassword
	}
	return nil
}

func (f *fakeUsers) UpdatePassword(context.Context, string, string, string) error {
	return errors.New("disk on fire")
}

func (f *fakeUsers) UpdateProfilePicture(_ context.Context, _ string, content io.Reader, contentType string) (*services.Profile, error) {
	b, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.picture = b
	f.pictureType = contentType
	return f.profile, nil
}

func (f *fakeUsers) Delete(_ context.Context, userID string) error {
	f.deleted = userID
	return nil
}

const (
	goodToken  = "Bearer good"
	otherToken = "Bearer other"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *fakeAuth, *fakeUsers) {
	t.Helper()

	identity := &models.Identity{ID: "u1", Username: "alice", Email: "alice@example.com"}
	auth := &fakeAuth{
		login: func(identifier, password string) (*services.TokenPair, error) {
			if identifier == "alice" && password == "secret12" {
				return &services.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
			}
			return nil, services.ErrInvalidCredentials
		},
		verify: func(token string) (*models.Identity, error) {
			if token == goodToken || token == "good" {
				return identity, nil
			}
			if token == otherToken {
				return &models.Identity{ID: "u2", Username: "bob"}, nil
			}
			return nil, services.ErrInvalidToken
		},
		refresh: func(token string) (*services.TokenPair, error) {
			if token == "refresh" {
				return &services.TokenPair{AccessToken: "access2", RefreshToken: "refresh2"}, nil
			}
			return nil, services.ErrRefreshTokenNotFound
		},
	}
	users := &fakeUsers{profile: &services.Profile{Identity: *identity}}

	s := NewServer(":0", logging.NewNopLogger(), auth, users, opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, auth, users
}

type response struct {
	Meta         meta            `json:"meta"`
	Data         json.RawMessage `json:"data"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
}

func do(t *testing.T, ts *httptest.Server, method, path, token, contentType string, body io.Reader) (int, response, http.Header) {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out, resp.Header
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t, Options{})

	tests := []struct {
		name        string
		contentType string
		body        func() io.Reader
		wantStatus  int
		wantError   string
	}{
		{
			name:        "json",
			contentType: "application/json",
			body: func() io.Reader {
				return jsonBody(t, map[string]string{"email_or_username": "alice", "password": "secret12"})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "oauth2 form",
			contentType: "application/x-www-form-urlencoded",
			body: func() io.Reader {
				return strings.NewReader(url.Values{"username": {"alice"}, "password": {"secret12"}}.Encode())
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "wrong password",
			contentType: "application/json",
			body: func() io.Reader {
				return jsonBody(t, map[string]string{"email_or_username": "alice", "password": "nope"})
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid_credentials",
		},
		{
			name:        "malformed",
			contentType: "application/json",
			body:        func() io.Reader { return strings.NewReader("{") },
			wantStatus:  http.StatusBadRequest,
			wantError:   "malformed_body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := do(t, ts, http.MethodPost, "/auth/login", "", tt.contentType, tt.body())
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, resp.Meta.Code)
			assert.Equal(t, tt.wantError, resp.Meta.Error)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "access", resp.AccessToken)
				assert.Equal(t, "refresh", resp.RefreshToken)

				var pair services.TokenPair
				require.NoError(t, json.Unmarshal(resp.Data, &pair))
				assert.Equal(t, "access", pair.AccessToken)
			}
		})
	}
}

func TestRegisterPassesAllFields(t *testing.T) {
	t.Parallel()
	ts, auth, _ := newTestServer(t, Options{})

	status, resp, _ := do(t, ts, http.MethodPost, "/auth/register", "", "application/json", jsonBody(t, map[string]string{
		"fullname":         "Alice A",
		"username":         "alice",
		"email":            "alice@example.com",
		"password":         "secret12",
		"confirm_password": "secret12",
	}))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a", resp.AccessToken)
	assert.Equal(t, []string{"Alice A", "alice", "alice@example.com", "secret12", "secret12"}, auth.registered)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t, Options{})

	status, resp, _ := do(t, ts, http.MethodPost, "/auth/refresh-token", "", "application/json",
		jsonBody(t, map[string]string{"refresh_token": "refresh"}))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "refresh2", resp.RefreshToken)

	status, resp, _ = do(t, ts, http.MethodPost, "/auth/refresh-token", "", "application/json",
		jsonBody(t, map[string]string{"refresh_token": "stale"}))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "refresh_token_not_found", resp.Meta.Error)
}

func TestCheckToken(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t, Options{})

	status, resp, _ := do(t, ts, http.MethodPost, "/auth/check-token", "", "application/json",
		jsonBody(t, map[string]string{"access_token": "good"}))
	require.Equal(t, http.StatusOK, status)

	var identity models.Identity
	require.NoError(t, json.Unmarshal(resp.Data, &identity))
	assert.Equal(t, "u1", identity.ID)
}

func TestForgotPasswordFlow(t *testing.T) {
	t.Parallel()
	ts, auth, _ := newTestServer(t, Options{})

	status, resp, _ := do(t, ts, http.MethodPost, "/auth/forgot-password/send-otp", "", "application/json",
		jsonBody(t, map[string]string{"email": "alice@example.com"}))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "email_send_failed", resp.Meta.Error)
	assert.Equal(t, "alice@example.com", auth.forgotEmail)

	status, resp, _ = do(t, ts, http.MethodPost, "/auth/forgot-password/verify-otp", "", "application/json",
		jsonBody(t, map[string]string{"email": "alice@example.com", "otp_code": "123456"}))
	require.Equal(t, http.StatusOK, status)
	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "otp-1", data["otp_id"])

	status, _, _ = do(t, ts, http.MethodPost, "/auth/forgot-password/change-password", "", "application/json",
		jsonBody(t, map[string]string{"otp_id": "otp-1", "new_password": "newpass1", "confirm_password": "newpass1"}))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"otp-1", "newpass1", "newpass1"}, auth.changed)
}

func TestVerifyEmailRequiresBearer(t *testing.T) {
	t.Parallel()
	ts, auth, _ := newTestServer(t, Options{})

	status, resp, _ := do(t, ts, http.MethodPost, "/auth/verify-email/send-otp", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "missing_token", resp.Meta.Error)

	status, resp, _ = do(t, ts, http.MethodPost, "/auth/verify-email/send-otp", "Bearer bad", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", resp.Meta.Error)

	status, _, _ = do(t, ts, http.MethodPost, "/auth/verify-email/send-otp", goodToken, "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, resp, _ = do(t, ts, http.MethodPost, "/auth/verify-email/verify-otp", goodToken, "application/json",
		jsonBody(t, map[string]string{"code": "000000"}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_otp", resp.Meta.Error)
	assert.Equal(t, "000000", auth.verifiedCode)
}

func TestUserMe(t *testing.T) {
	t.Parallel()
	ts, _, users := newTestServer(t, Options{})

	status, resp, _ := do(t, ts, http.MethodGet, "/user/me", goodToken, "", nil)
	require.Equal(t, http.StatusOK, status)
	var profile services.Profile
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, "alice", profile.Username)

	status, _, _ = do(t, ts, http.MethodPatch, "/user/me/profile", goodToken, "application/json",
		strings.NewReader(`{"fullname":"Alice B"}`))
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, users.patch.Fullname)
	assert.Equal(t, "Alice B", *users.patch.Fullname)
	assert.Nil(t, users.patch.Email)

	status, resp, _ = do(t, ts, http.MethodPost, "/user/me/check-password", goodToken, "application/json",
		jsonBody(t, map[string]string{"password": "wrong"}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "wrong_password", resp.Meta.Error)

	status, _, _ = do(t, ts, http.MethodDelete, "/user/me", goodToken, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", users.deleted)
}

func TestUnclassifiedErrorIsOpaque(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t, Options{})

	status, resp, _ := do(t, ts, http.MethodPatch, "/user/me/password", goodToken, "application/json",
		jsonBody(t, map[string]string{"password": "newpass1", "confirm_password": "newpass1"}))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", resp.Meta.Error)
	assert.Equal(t, "internal server error", resp.Meta.Message)
	assert.Empty(t, resp.Meta.ErrorDetail)
}

func TestUpdateProfilePicture(t *testing.T) {
	t.Parallel()
	ts, _, users := newTestServer(t, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(profilePictureField, "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	status, _, _ := do(t, ts, http.MethodPut, "/user/me/profile-picture", goodToken, mw.FormDataContentType(), &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nrest"), users.picture)
	assert.Equal(t, "application/octet-stream", users.pictureType)
}

func TestUpdateProfilePictureMissingFile(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	status, resp, _ := do(t, ts, http.MethodPut, "/user/me/profile-picture", goodToken, mw.FormDataContentType(), &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed_body", resp.Meta.Error)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t, Options{Limiter: ratelimit.NewMemoryLimiter(1, time.Minute)})

	body := func() io.Reader {
		return jsonBody(t, map[string]string{"email_or_username": "alice", "password": "secret12"})
	}

	status, _, _ := do(t, ts, http.MethodPost, "/auth/login", "", "application/json", body())
	assert.Equal(t, http.StatusOK, status)

	status, resp, header := do(t, ts, http.MethodPost, "/auth/login", "", "application/json", body())
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", resp.Meta.Error)
	assert.NotEmpty(t, header.Get("Retry-After"))

	// other routes keep their own budget
	status, _, _ = do(t, ts, http.MethodPost, "/auth/refresh-token", "", "application/json",
		jsonBody(t, map[string]string{"refresh_token": "refresh"}))
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthAndNotFound(t *testing.T) {
	t.Parallel()

	ts, _, _ := newTestServer(t, Options{})
	status, _, _ := do(t, ts, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, resp, _ := do(t, ts, http.MethodGet, "/nope", "", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", resp.Meta.Error)

	down, _, _ := newTestServer(t, Options{Health: func(context.Context) error { return errors.New("mongo down") }})
	status, resp, _ = do(t, down, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", resp.Meta.Error)
}

func TestServe_DrainsInFlightRequests(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	auth := &fakeAuth{login: func(string, string) (*services.TokenPair, error) {
		close(entered)
		<-release
		return &services.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
	}}
	s := NewServer("127.0.0.1:0", logging.NewNopLogger(), auth, &fakeUsers{}, Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	type result struct {
		status int
		err    error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/auth/login", "application/json",
			strings.NewReader(`{"email_or_username":"alice","password":"secret12"}`))
		if err != nil {
			done <- result{err: err}
			return
		}
		resp.Body.Close()
		done <- result{status: resp.StatusCode}
	}()

	<-entered
	cancel()

	select {
	case err := <-served:
		t.Fatalf("Serve returned with a request in flight: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, http.StatusOK, r.status)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the request finished")
	}
}

func TestRun_ListenError(t *testing.T) {
	t.Parallel()

	s := NewServer("not-an-address", logging.NewNopLogger(), &fakeAuth{}, &fakeUsers{}, Options{})
	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestRateLimit_VerifyEmailOTPPerUser(t *testing.T) {
	t.Parallel()
	ts, auth, _ := newTestServer(t, Options{Limiter: ratelimit.NewMemoryLimiter(3, time.Minute)})

	guess := func(token, code string) (int, response) {
		status, resp, _ := do(t, ts, http.MethodPost, "/auth/verify-email/verify-otp", token, "application/json",
			jsonBody(t, map[string]string{"code": code}))
		return status, resp
	}

	for i := 0; i < 3; i++ {
		status, _ := guess(goodToken, "000000")
		assert.Equal(t, http.StatusBadRequest, status)
	}

	status, resp := guess(goodToken, "123456")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", resp.Meta.Error)
	assert.Equal(t, "000000", auth.verifiedCode, "limited guess must not reach the service")

	// another account from the same address has its own budget
	status, _ = guess(otherToken, "123456")
	assert.Equal(t, http.StatusOK, status)
}

func TestLogin_FormKeyPrecedence(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t, Options{})

	form := url.Values{
		"email_or_username": {"alice"},
		"username":          {"mallory"},
		"password":          {"secret12"},
	}.Encode()

	for i := 0; i < 10; i++ {
		status, resp, _ := do(t, ts, http.MethodPost, "/auth/login", "", "application/x-www-form-urlencoded", strings.NewReader(form))
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "access", resp.AccessToken)
	}
}
