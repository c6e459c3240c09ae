package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jrsteele09/payslip-server/emaillogs"
	"github.com/jrsteele09/payslip-server/identity"
	"github.com/jrsteele09/payslip-server/identity/identitytest"
	"github.com/jrsteele09/payslip-server/internal/config"
	"github.com/jrsteele09/payslip-server/mail"
	"github.com/jrsteele09/payslip-server/payslips"
	"github.com/jrsteele09/payslip-server/server"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/stretchr/testify/require"
)

const frontendOrigin = "http://localhost:5173"

type fakeSender struct {
	err      error
	tokens   []string
	messages []mail.Message
}

func (f *fakeSender) Send(_ context.Context, accessToken string, msg mail.Message) error {
	f.tokens = append(f.tokens, accessToken)
	f.messages = append(f.messages, msg)
	return f.err
}

type testFixture struct {
	server  *server.Server
	idp     *identitytest.Server
	repo    *sessions.InMemoryRepo
	logs    *emaillogs.InMemoryRepo
	sender  *fakeSender
	profile sessions.Profile
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("FRONTEND_ORIGIN_LOCAL", frontendOrigin)
	t.Setenv("FRONTEND_ORIGIN_PROD", "https://payroll.example.com")

	cfg, err := config.New()
	require.NoError(t, err)

	idp := identitytest.NewServer(t)
	client, err := identity.New(idp.Settings())
	require.NoError(t, err)

	repo := sessions.NewInMemoryRepo()
	manager, err := sessions.NewManager(repo, client)
	require.NoError(t, err)

	logs := emaillogs.NewInMemoryRepo()
	sender := &fakeSender{}
	payslipService, err := payslips.NewService(sender, logs)
	require.NoError(t, err)

	srv, err := server.New(cfg, server.Dependencies{
		Sessions: manager,
		Identity: client,
		Payslips: payslipService,
	})
	require.NoError(t, err)

	return &testFixture{
		server: srv,
		idp:    idp,
		repo:   repo,
		logs:   logs,
		sender: sender,
		profile: sessions.Profile{
			Email: gofakeit.Email(),
			Name:  gofakeit.Name(),
		},
	}
}

func (f *testFixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

// login runs the full login and callback flow and returns the session cookie.
func (f *testFixture) login(t *testing.T) *http.Cookie {
	t.Helper()

	rec := f.get(server.RouteAuthLogin)
	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	stateCookie := findCookie(rec, server.StateCookieName)
	require.NotNil(t, stateCookie)

	code := gofakeit.UUID()
	f.idp.IssueCode(code, f.profile)

	rec = f.get(server.RouteAuthCallback+"?code="+code+"&state="+state, stateCookie)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, frontendOrigin, rec.Header().Get("Location"))

	sessionCookie := findCookie(rec, server.SessionCookieName)
	require.NotNil(t, sessionCookie)
	return sessionCookie
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func requireCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	c := findCookie(rec, server.SessionCookieName)
	require.NotNil(t, c, "session cookie should be cleared")
	require.Empty(t, c.Value)
	require.Less(t, c.MaxAge, 0)
}

func TestLoginRedirectsToProvider(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAuthLogin)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/"+identitytest.TenantID+"/oauth2/v2.0/authorize", location.Path)
	require.Equal(t, identitytest.ClientID, location.Query().Get("client_id"))
	require.Equal(t, identitytest.RedirectURL, location.Query().Get("redirect_uri"))
	require.Contains(t, location.Query().Get("scope"), "offline_access")

	stateCookie := findCookie(rec, server.StateCookieName)
	require.NotNil(t, stateCookie)
	require.Equal(t, location.Query().Get("state"), stateCookie.Value)
	require.True(t, stateCookie.HttpOnly)
}

func TestCallbackThenStatus(t *testing.T) {
	f := setupTestFixture(t)

	cookie := f.login(t)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)
	require.Equal(t, 1, f.repo.Len())

	stored, err := f.repo.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.Equal(t, f.profile.Email, stored.Email)
	require.Equal(t, "refresh-1", stored.RefreshToken)
	require.NotEqual(t, stored.AccessToken, cookie.Value)

	rec := f.get(server.RouteAuthStatus, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, true, body["isAuthenticated"])
	require.Equal(t, f.profile.Name, body["name"])
	require.Equal(t, f.profile.Email, body["email"])
}

func TestCallbackValidation(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAuthCallback)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Authorization code missing", decode(t, rec)["error"])

	f.idp.IssueCode("code-1", f.profile)
	rec = f.get(server.RouteAuthCallback + "?code=code-1&state=forged")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid state parameter", decode(t, rec)["error"])

	rec = f.get(server.RouteAuthCallback+"?code=code-1&state=forged", &http.Cookie{Name: server.StateCookieName, Value: "expected"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, 0, f.idp.TokenCalls())
	require.Equal(t, 0, f.repo.Len())
}

func TestCallbackProviderFailuresCreateNoSession(t *testing.T) {
	f := setupTestFixture(t)
	state := &http.Cookie{Name: server.StateCookieName, Value: "s1"}

	rec := f.get(server.RouteAuthCallback+"?code=never-issued&state=s1", state)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Authentication failed", decode(t, rec)["error"])
	require.Equal(t, 0, f.idp.ProfileCalls(), "profile is not fetched after a failed exchange")

	f.idp.IssueCode("code-2", f.profile)
	f.idp.ProfileStatus = http.StatusServiceUnavailable
	rec = f.get(server.RouteAuthCallback+"?code=code-2&state=s1", state)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "access-")
	require.Equal(t, 1, f.idp.ProfileCalls())

	require.Equal(t, 0, f.repo.Len())
	require.Nil(t, findCookie(rec, server.SessionCookieName))
}

func TestCurrentUserWithoutCookie(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAuthCurrentUser)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Authentication required", decode(t, rec)["error"])
}

func TestCurrentUserWithSession(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.login(t)

	rec := f.get(server.RouteAuthCurrentUser, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, f.profile.Name, body["name"])
	require.Equal(t, f.profile.Email, body["email"])
	require.Equal(t, true, body["isAuthenticated"])
	require.NotContains(t, rec.Body.String(), "access-")
}

func TestProtectedRouteUnknownSessionClearsCookie(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAuthCurrentUser, &http.Cookie{Name: server.SessionCookieName, Value: "unknown"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid session", decode(t, rec)["error"])
	requireCleared(t, rec)
}

func TestExpiredSession(t *testing.T) {
	f := setupTestFixture(t)
	session := &sessions.Session{
		ID:          "expired-session",
		Email:       f.profile.Email,
		Name:        f.profile.Name,
		AccessToken: "stale",
		ExpiresOn:   sessions.NormaliseTime(time.Now().Add(-time.Millisecond)),
		CreatedAt:   sessions.NormaliseTime(time.Now().Add(-time.Hour)),
	}
	require.NoError(t, f.repo.Create(context.Background(), session))
	cookie := &http.Cookie{Name: server.SessionCookieName, Value: session.ID}

	rec := f.get(server.RouteAuthStatus, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]interface{}{"isAuthenticated": false}, decode(t, rec))
	requireCleared(t, rec)
	require.Equal(t, 0, f.repo.Len())

	require.NoError(t, f.repo.Create(context.Background(), session))
	rec = f.get(server.RouteAuthCurrentUser, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Session expired", decode(t, rec)["error"])
	requireCleared(t, rec)
}

func TestStatusWithoutCookie(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAuthStatus)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]interface{}{"isAuthenticated": false}, decode(t, rec))
	require.Nil(t, findCookie(rec, server.SessionCookieName))
}

func TestRefreshTokenReplacesStoredTokens(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.login(t)
	ctx := context.Background()

	before, err := f.repo.Get(ctx, cookie.Value)
	require.NoError(t, err)
	// Bring expiry forward so the refreshed lifetime is measurably later.
	require.NoError(t, f.repo.UpdateTokens(ctx, cookie.Value, sessions.Tokens{
		AccessToken:  before.AccessToken,
		RefreshToken: before.RefreshToken,
		ExpiresOn:    sessions.NormaliseTime(time.Now().Add(time.Minute)),
	}))
	before, err = f.repo.Get(ctx, cookie.Value)
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteAuthRefreshToken, nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, true, body["success"])
	require.NotContains(t, rec.Body.String(), "access-")

	after, err := f.repo.Get(ctx, cookie.Value)
	require.NoError(t, err)
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.True(t, after.ExpiresOn.After(before.ExpiresOn))
	require.Equal(t, before.RefreshToken, after.RefreshToken)
	require.Equal(t, before.Email, after.Email)
}

func TestRefreshTokenFailures(t *testing.T) {
	t.Run("no refresh token", func(t *testing.T) {
		f := setupTestFixture(t)
		f.idp.OmitRefreshToken = true
		cookie := f.login(t)

		rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteAuthRefreshToken, nil), cookie)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Invalid session or missing refresh token", decode(t, rec)["error"])
	})

	t.Run("refresh rejected", func(t *testing.T) {
		f := setupTestFixture(t)
		cookie := f.login(t)
		f.idp.RevokeRefreshToken("refresh-1")

		before, err := f.repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)

		rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteAuthRefreshToken, nil), cookie)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Failed to refresh token", decode(t, rec)["error"])

		after, err := f.repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("no session", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodPost, server.RouteAuthRefreshToken, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.login(t)

	rec := f.get(server.RouteAuthLogout, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	requireCleared(t, rec)
	require.Equal(t, 0, f.repo.Len())

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/"+identitytest.TenantID+"/oauth2/v2.0/logout", location.Path)
	require.Equal(t, frontendOrigin, location.Query().Get("post_logout_redirect_uri"))

	// Logging out again, or without any session, still succeeds.
	rec = f.get(server.RouteAuthLogout, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	rec = f.get(server.RouteAuthLogout)
	require.Equal(t, http.StatusFound, rec.Code)
}

func TestCorsPreflight(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteAuthStatus, nil)
	req.Header.Set("Origin", frontendOrigin)
	rec := f.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, frontendOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteAuthStatus, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = f.do(req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, server.RouteAuthStatus, nil)
	req.Header.Set("Origin", "https://payroll.example.com")
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://payroll.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteHealth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode(t, rec)["status"])
}

func payslipRequest(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withFile {
		fw, err := mw.CreateFormFile("file", "0042.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 payslip"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, server.RouteSendPayslip, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var payslipFields = map[string]string{
	"to":           "sam@example.com",
	"subject":      "Payslip March",
	"html":         "<p>Attached</p>",
	"workerNum":    "0042",
	"workerName":   "Sam Worker",
	"senderName":   "Pat Payroll",
	"senderEmail":  "pat@example.com",
	"batchId":      "batch-1",
	"batchItemNum": "3",
	"batchSize":    "10",
}

func TestSendPayslip(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.login(t)

	rec := f.do(payslipRequest(t, payslipFields, true), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]interface{}{"success": true, "message": "Email sent and logged successfully."}, decode(t, rec))

	require.Len(t, f.sender.messages, 1)
	require.Equal(t, "access-1", f.sender.tokens[0])
	msg := f.sender.messages[0]
	require.Equal(t, "sam@example.com", msg.To)
	require.Equal(t, "Attached", msg.PlainText())
	require.Equal(t, "0042.pdf", msg.Attachments[0].Filename)
	require.Equal(t, []byte("%PDF-1.4 payslip"), msg.Attachments[0].Content)

	logs, err := f.logs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.True(t, logs[0].Successful)
	require.Equal(t, 10, logs[0].BatchSize)
	require.Equal(t, "0042.pdf", logs[0].RecipientPayslipFile)
}

func TestSendPayslipFailureIsLogged(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.err = errors.New("graph unavailable")
	cookie := f.login(t)

	rec := f.do(payslipRequest(t, payslipFields, true), cookie)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, map[string]interface{}{"success": false, "message": "Failed to send email. Logged attempt."}, decode(t, rec))

	logs, err := f.logs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.False(t, logs[0].Successful)
}

func TestSendPayslipValidation(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.login(t)

	rec := f.do(payslipRequest(t, payslipFields, false), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No file uploaded", decode(t, rec)["error"])

	rec = f.do(payslipRequest(t, payslipFields, true))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Empty(t, f.sender.messages)
}

func TestPayslipLogs(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.login(t)

	for i := 0; i < 3; i++ {
		rec := f.do(payslipRequest(t, payslipFields, true), cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.get(server.RoutePayslipLogs+"?limit=2", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []emaillogs.EmailLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 2)

	rec = f.get(server.RoutePayslipLogs, cookie)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 3)

	for _, limit := range []string{"0", "-4", "ten"} {
		rec = f.get(server.RoutePayslipLogs+"?limit="+limit, cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code, limit)
		body := decode(t, rec)
		require.Equal(t, "Invalid limit parameter", body["error"])
		require.Equal(t, "Limit must be a positive number", body["message"])
	}

	rec = f.get(server.RoutePayslipLogs)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
