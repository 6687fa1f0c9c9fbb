package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/myazlifresh/foundersite/internal/telemetry/metrics"
	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"
	"github.com/myazlifresh/foundersite/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Handler struct {
	verifier      *Verifier
	codec         *Codec
	secureCookies bool
	metrics       *metrics.Manager
}

func NewHandler(
	verifier *Verifier,
	codec *Codec,
	secureCookies bool,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		verifier:      verifier,
		codec:         codec,
		secureCookies: secureCookies,
		metrics:       metricsManager,
	}
}

func (handler *Handler) SetupRoutes(authRouter *mux.Router) {
	authRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	authRouter.HandleFunc("/logout", handler.handleLogout).Methods("POST", "OPTIONS").Name("logout")
	authRouter.HandleFunc("/check-session", handler.handleCheckSession).Methods("GET").Name("check-session")
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	// strict endpoint: JSON bodies only
	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		span.SetStatus(codes.Error, "unsupported-media-type")
		pkg.WriteResponse(w, pkg.ContentType.JSON, `{"error":"unsupported media type"}`, http.StatusUnsupportedMediaType)
		return
	}

	var loginReq loginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		span.SetStatus(codes.Error, "bad-request-body")
		pkg.WriteResponse(w, pkg.ContentType.JSON, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		span.SetStatus(codes.Error, "empty-credentials")
		pkg.WriteResponse(w, pkg.ContentType.JSON, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	if err := handler.verifier.Verify(loginReq.Email, loginReq.Password); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			// fail closed, never fall back to baked-in credentials
			log.Errorf("login refused: admin identity not configured")
			span.SetStatus(codes.Error, "not-configured")
			pkg.WriteResponse(w, pkg.ContentType.JSON, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		log.Tracef("failed login attempt for email: %s", loginReq.Email)
		handler.metrics.CounterFailedLogins.Inc()
		span.SetStatus(codes.Error, "invalid-credentials")
		pkg.WriteResponse(w, pkg.ContentType.JSON, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	claims := handler.codec.NewSessionClaims()
	token, err := handler.codec.Issue(claims)
	if err != nil {
		log.Errorf("login failed, issue session token: %s", err)
		span.SetStatus(codes.Error, "issue-token-failed")
		pkg.WriteResponse(w, pkg.ContentType.JSON, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	SetSessionCookie(w, token, claims.ExpiresAt, handler.secureCookies)
	handler.metrics.CounterLogins.Inc()
	log.Trace("new login success")
	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	ClearSessionCookie(w, handler.secureCookies)
	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}

// handleCheckSession relies on the route guard having rejected
// unauthenticated callers already - reaching it means the session is valid
func (handler *Handler) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSONResponseOK(w, `{"authenticated":true}`)
}
