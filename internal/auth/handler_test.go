package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/myazlifresh/foundersite/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthHandlerSetup(t *testing.T, admin Admin, secret string) *mux.Router {
	t.Helper()

	handler := NewHandler(
		NewVerifier(admin),
		NewCodec(secret, DefaultTTL),
		false,
		metrics.NewTestManager(),
	)

	r := mux.NewRouter()
	handler.SetupRoutes(r.PathPrefix("/api/auth").Subrouter())
	return r
}

func loginReqBody(email, password string) *strings.Reader {
	return strings.NewReader(fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
}

func TestAuthHandler_handleLogin(t *testing.T) {
	r := testAuthHandlerSetup(t, testAdmin, testSigningSecret)

	req := httptest.NewRequest("POST", "/api/auth/login", loginReqBody(testEmail, testPassword))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"success":true}`, rr.Body.String())

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	// the issued token validates right away
	codec := NewCodec(testSigningSecret, DefaultTTL)
	claims, err := codec.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, SubjectAdmin, claims.Subject)
}

func TestAuthHandler_handleLogin_invalidCredentials(t *testing.T) {
	r := testAuthHandlerSetup(t, testAdmin, testSigningSecret)

	// wrong email and wrong password responses must be byte-identical,
	// a caller can not learn which one was off
	responses := make([]*httptest.ResponseRecorder, 0, 2)
	for _, body := range []*strings.Reader{
		loginReqBody("other@myazlifresh.com", testPassword),
		loginReqBody(testEmail, "wrongpass"),
	} {
		req := httptest.NewRequest("POST", "/api/auth/login", body)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		responses = append(responses, rr)
	}

	for _, rr := range responses {
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	}
	assert.Equal(t, responses[0].Body.String(), responses[1].Body.String())
	assert.Equal(t, `{"error":"Invalid credentials"}`, responses[0].Body.String())
}

func TestAuthHandler_handleLogin_badRequests(t *testing.T) {
	r := testAuthHandlerSetup(t, testAdmin, testSigningSecret)

	testCases := map[string]struct {
		contentType  string
		body         string
		expectedCode int
	}{
		"wrong content type": {
			contentType:  "application/x-www-form-urlencoded",
			body:         "email=a&password=b",
			expectedCode: http.StatusUnsupportedMediaType,
		},
		"no content type": {
			body:         `{"email":"a","password":"b"}`,
			expectedCode: http.StatusUnsupportedMediaType,
		},
		"malformed json": {
			contentType:  "application/json",
			body:         `{"email":`,
			expectedCode: http.StatusBadRequest,
		},
		"non-string fields": {
			contentType:  "application/json",
			body:         `{"email":42,"password":true}`,
			expectedCode: http.StatusBadRequest,
		},
		"empty email": {
			contentType:  "application/json",
			body:         `{"email":"","password":"pass"}`,
			expectedCode: http.StatusBadRequest,
		},
		"empty password": {
			contentType:  "application/json",
			body:         fmt.Sprintf(`{"email":%q,"password":""}`, testEmail),
			expectedCode: http.StatusBadRequest,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Empty(t, rr.Result().Cookies())
		})
	}
}

func TestAuthHandler_handleLogin_notConfigured(t *testing.T) {
	// no admin identity: correct credentials can not exist, fail closed
	r := testAuthHandlerSetup(t, Admin{}, testSigningSecret)

	req := httptest.NewRequest("POST", "/api/auth/login", loginReqBody(testEmail, testPassword))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, `{"error":"internal server error"}`, rr.Body.String())
	assert.Empty(t, rr.Result().Cookies())
}

func TestAuthHandler_handleLogin_noSigningSecret(t *testing.T) {
	// valid credentials, but no signing secret: no session can be minted
	r := testAuthHandlerSetup(t, testAdmin, "")

	req := httptest.NewRequest("POST", "/api/auth/login", loginReqBody(testEmail, testPassword))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestAuthHandler_handleLogout(t *testing.T) {
	r := testAuthHandlerSetup(t, testAdmin, testSigningSecret)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestAuthHandler_handleCheckSession(t *testing.T) {
	r := testAuthHandlerSetup(t, testAdmin, testSigningSecret)

	req := httptest.NewRequest("GET", "/api/auth/check-session", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"authenticated":true}`, rr.Body.String())
}
