package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/myazlifresh/foundersite/internal/geoip"
	"github.com/myazlifresh/foundersite/internal/telemetry/metrics"
	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"
	"github.com/myazlifresh/foundersite/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const maxMessageLength = 5000

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type messagesRepo interface {
	AddMessage(ctx context.Context, message *Message) error
	UpdateMessageStatus(ctx context.Context, id int, status string) error
	DeleteMessage(ctx context.Context, id int) error
	All(ctx context.Context) ([]*Message, error)
	GetStats(ctx context.Context) (*Stats, error)
}

type geoInfoProvider interface {
	GetRequestGeoInfo(ctx context.Context, r *http.Request) (*geoip.IpInfo, error)
}

type newMessageRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	// Website is a honeypot field, hidden on the real form; bots that
	// fill it get a fake success and the message is discarded
	Website string `json:"website"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type Handler struct {
	repo    messagesRepo
	geoIp   geoInfoProvider
	metrics *metrics.Manager
}

func NewHandler(
	repo messagesRepo,
	geoIp geoInfoProvider,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:    repo,
		geoIp:   geoIp,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(contactRouter *mux.Router) {
	contactRouter.HandleFunc("", handler.handleNewMessage).Methods("POST", "OPTIONS").Name("new-message")
}

func (handler *Handler) SetupAdminRoutes(adminMessagesRouter *mux.Router) {
	adminMessagesRouter.HandleFunc("", handler.handleAll).Methods("GET").Name("all-messages")
	adminMessagesRouter.HandleFunc("/stats", handler.handleStats).Methods("GET").Name("messages-stats")
	adminMessagesRouter.HandleFunc("/{id}/status", handler.handleUpdateStatus).Methods("PUT", "OPTIONS").Name("update-message-status")
	adminMessagesRouter.HandleFunc("/{id}", handler.handleDeleteMessage).Methods("DELETE", "OPTIONS").Name("delete-message")
}

func (handler *Handler) handleNewMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contactHandler.newMessage")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req newMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new contact message, unmarshal json params: %s", err)
		http.Error(w, "send message failed", http.StatusBadRequest)
		return
	}

	// honeypot tripped: pretend everything went fine
	if req.Website != "" {
		log.Warnf("contact message honeypot tripped, dropping message from [%s]", req.Email)
		span.SetStatus(codes.Ok, "honeypot")
		pkg.WriteJSONResponseOK(w, `{"success":true}`)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	switch {
	case req.Name == "":
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	case !emailRegex.MatchString(req.Email):
		http.Error(w, "error, invalid email", http.StatusBadRequest)
		return
	case req.Message == "":
		http.Error(w, "error, message empty", http.StatusBadRequest)
		return
	case len(req.Message) > maxMessageLength:
		http.Error(w, "error, message too long", http.StatusBadRequest)
		return
	}

	message := &Message{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Status:  StatusNew,
	}

	// country is nice-to-have, a failed lookup never blocks the message
	if geoInfo, err := handler.geoIp.GetRequestGeoInfo(ctx, r); err != nil {
		log.Warnf("new contact message, get geo info: %s", err)
	} else {
		message.Country = geoInfo.CountryName()
	}

	if err := handler.repo.AddMessage(ctx, message); err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("add message: %s", err))
		log.Errorf("add contact message failed: %s", err)
		http.Error(w, "send message failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterContactMessages.Inc()
	span.SetStatus(codes.Ok, "message-added")
	log.Tracef("new contact message %d from [%s] added", message.ID, message.Email)

	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	messages, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all contact messages error: %s", err)
		http.Error(w, "get messages error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []*Message{}
	}

	messagesJson, err := json.Marshal(messages)
	if err != nil {
		log.Errorf("marshal contact messages error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, messagesJson)
}

func (handler *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := handler.repo.GetStats(r.Context())
	if err != nil {
		log.Errorf("get contact messages stats error: %s", err)
		http.Error(w, "get messages stats error", http.StatusInternalServerError)
		return
	}

	statsJson, err := json.Marshal(stats)
	if err != nil {
		log.Errorf("marshal contact messages stats error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statsJson)
}

func (handler *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update message status, unmarshal json params: %s", err)
		http.Error(w, "update status failed", http.StatusBadRequest)
		return
	}

	if !ValidStatus(req.Status) {
		http.Error(w, "error, invalid status", http.StatusBadRequest)
		return
	}

	if err := handler.repo.UpdateMessageStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			http.Error(w, "error, message not found", http.StatusNotFound)
			return
		}
		log.Errorf("update message %d status failed: %s", id, err)
		http.Error(w, "update status failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", id))
}

func (handler *Handler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.DeleteMessage(r.Context(), id); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			http.Error(w, "error, message not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete message %d: %s", id, err)
		http.Error(w, "error, message not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}
