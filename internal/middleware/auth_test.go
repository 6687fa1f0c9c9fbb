package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/myazlifresh/foundersite/internal/auth"
	"github.com/myazlifresh/foundersite/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestClassifyRoute(t *testing.T) {
	for path, want := range map[string]middleware.RouteKind{
		"/":                           middleware.RouteKindPublic,
		"/api/blog/page/1/size/10":    middleware.RouteKindPublic,
		"/api/contact":                middleware.RouteKindPublic,
		"/api/auth/login":             middleware.RouteKindPublic,
		"/api/auth/logout":            middleware.RouteKindPublic,
		"/api/auth/check-session":     middleware.RouteKindApi,
		"/api/admin/blog":             middleware.RouteKindApi,
		"/api/admin/messages/stats":   middleware.RouteKindApi,
		"/admin":                      middleware.RouteKindPage,
		"/admin/":                     middleware.RouteKindPage,
		"/admin/dashboard":            middleware.RouteKindPage,
		"/admin/posts/new":            middleware.RouteKindPage,
		"/admin/login":                middleware.RouteKindPublic,
		"/administration":             middleware.RouteKindPublic,
		"/adminlogin":                 middleware.RouteKindPublic,
	} {
		assert.Equal(t, want, middleware.ClassifyRoute(path), "path: %s", path)
	}
}

type authCheckTestSetup struct {
	checker *MockChecker
	handler http.Handler
	nextHit *bool
	subject *string
}

func newAuthCheckTestSetup(t *testing.T) *authCheckTestSetup {
	t.Helper()
	ctrl := gomock.NewController(t)
	checker := NewMockChecker(ctrl)

	nextHit := false
	subject := ""
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextHit = true
		if s, ok := auth.SubjectFromContext(r.Context()); ok {
			subject = s
		}
		w.WriteHeader(http.StatusOK)
	})

	amw := middleware.NewAuthMiddlewareHandler(checker, false)
	return &authCheckTestSetup{
		checker: checker,
		handler: amw.AuthCheck()(next),
		nextHit: &nextHit,
		subject: &subject,
	}
}

func TestAuthCheck_publicRoutePassesThrough(t *testing.T) {
	s := newAuthCheckTestSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/blog/page/1/size/10", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *s.nextHit)
}

func TestAuthCheck_missingCookie(t *testing.T) {
	t.Run("page redirects to login", func(t *testing.T) {
		s := newAuthCheckTestSetup(t)

		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, middleware.LoginPagePath, rec.Header().Get("Location"))
		assert.False(t, *s.nextHit)
		// nothing to clear
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("api gets 401 json", func(t *testing.T) {
		s := newAuthCheckTestSetup(t)

		req := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, `{"error":"authentication required"}`, rec.Body.String())
		assert.False(t, *s.nextHit)
	})
}

func TestAuthCheck_invalidSessionClearsCookie(t *testing.T) {
	for name, validateErr := range map[string]error{
		"invalid": auth.ErrTokenInvalid,
		"expired": auth.ErrTokenExpired,
	} {
		t.Run(name, func(t *testing.T) {
			s := newAuthCheckTestSetup(t)
			s.checker.EXPECT().
				Validate("stale-token").
				Return(auth.SessionClaims{}, validateErr)

			req := httptest.NewRequest(http.MethodDelete, "/api/admin/blog/some-post", nil)
			req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "stale-token"})
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, *s.nextHit)

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
			assert.Empty(t, cookies[0].Value)
			assert.Less(t, cookies[0].MaxAge, 0)
		})
	}
}

func TestAuthCheck_validSessionForwardsSubject(t *testing.T) {
	s := newAuthCheckTestSetup(t)
	s.checker.EXPECT().
		Validate("good-token").
		Return(auth.SessionClaims{
			Subject:   auth.SubjectAdmin,
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check-session", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "good-token"})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *s.nextHit)
	assert.Equal(t, auth.SubjectAdmin, *s.subject)
}

func TestAuthCheck_loginPage(t *testing.T) {
	t.Run("no session shows login", func(t *testing.T) {
		s := newAuthCheckTestSetup(t)

		req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *s.nextHit)
	})

	t.Run("valid session redirects to dashboard", func(t *testing.T) {
		s := newAuthCheckTestSetup(t)
		s.checker.EXPECT().
			Validate("good-token").
			Return(auth.SessionClaims{
				Subject:   auth.SubjectAdmin,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "good-token"})
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, middleware.DashboardPath, rec.Header().Get("Location"))
		assert.False(t, *s.nextHit)
	})

	t.Run("broken session still shows login", func(t *testing.T) {
		s := newAuthCheckTestSetup(t)
		s.checker.EXPECT().
			Validate("stale-token").
			Return(auth.SessionClaims{}, auth.ErrTokenExpired)

		req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "stale-token"})
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *s.nextHit)
	})
}

func TestAuthCheck_optionsRequest(t *testing.T) {
	s := newAuthCheckTestSetup(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/blog", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, *s.nextHit)
}
