package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/myazlifresh/foundersite/internal/telemetry/metrics"
	"github.com/myazlifresh/foundersite/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// the public media page shows a short list and loads more on demand
const defaultPageSize = 4

type mentionsRepo interface {
	AddMention(ctx context.Context, mention *Mention) error
	DeleteMention(ctx context.Context, id int) error
	All(ctx context.Context) ([]*Mention, error)
	MentionsCount(ctx context.Context) (int, error)
	GetMentionsPage(ctx context.Context, page, size int) ([]*Mention, error)
}

type MentionsPageResponse struct {
	Mentions []*Mention `json:"mentions"`
	Total    int        `json:"total"`
	HasMore  bool       `json:"hasMore"`
}

type newMentionRequest struct {
	Publication string `json:"publication"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	URL         string `json:"url"`
	Date        string `json:"date"`
}

type Handler struct {
	repo    mentionsRepo
	metrics *metrics.Manager
}

func NewHandler(repo mentionsRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(mediaRouter *mux.Router) {
	mediaRouter.HandleFunc("/page/{page}", handler.handleGetPage).Methods("GET").Name("mentions-page")
}

func (handler *Handler) SetupAdminRoutes(adminMediaRouter *mux.Router) {
	adminMediaRouter.HandleFunc("", handler.handleNewMention).Methods("POST", "OPTIONS").Name("new-mention")
	adminMediaRouter.HandleFunc("/all", handler.handleAll).Methods("GET").Name("all-mentions")
	adminMediaRouter.HandleFunc("/{id}", handler.handleDeleteMention).Methods("DELETE", "OPTIONS").Name("delete-mention")
}

func (handler *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		log.Errorf("handle get mentions page, from <page> param: %s", err)
		http.Error(w, "invalid parameter <page>", http.StatusBadRequest)
		return
	}
	if page < 1 {
		http.Error(w, "invalid page (has to be a positive value)", http.StatusBadRequest)
		return
	}

	size := defaultPageSize
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		size, err = strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			http.Error(w, "invalid parameter <size>", http.StatusBadRequest)
			return
		}
	}

	mentions, err := handler.repo.GetMentionsPage(r.Context(), page, size)
	if err != nil {
		log.Errorf("get mentions page error: %s", err)
		http.Error(w, "failed to get media mentions", http.StatusInternalServerError)
		return
	}
	if mentions == nil {
		mentions = []*Mention{}
	}

	total, err := handler.repo.MentionsCount(r.Context())
	if err != nil {
		log.Errorf("get mentions count error: %s", err)
		http.Error(w, "failed to get media mentions", http.StatusInternalServerError)
		return
	}

	pageRespJson, err := json.Marshal(MentionsPageResponse{
		Mentions: mentions,
		Total:    total,
		HasMore:  page*size < total,
	})
	if err != nil {
		log.Errorf("marshal mentions page error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, pageRespJson)
}

func (handler *Handler) handleNewMention(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req newMentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new mention, unmarshal json params: %s", err)
		http.Error(w, "add mention failed", http.StatusBadRequest)
		return
	}

	if req.Publication == "" || req.Title == "" || req.URL == "" {
		http.Error(w, "error, publication, title or url empty", http.StatusBadRequest)
		return
	}

	newMention := &Mention{
		Publication: req.Publication,
		Title:       req.Title,
		Excerpt:     req.Excerpt,
		URL:         req.URL,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "error, invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		newMention.Date = date
	}

	if err := handler.repo.AddMention(r.Context(), newMention); err != nil {
		log.Errorf("add new mention failed: %s", err)
		http.Error(w, "add new mention failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterMediaMentions.Inc()
	log.Tracef("new media mention %d: [%s / %s] added", newMention.ID, newMention.Publication, newMention.Title)

	mentionJson, err := json.Marshal(newMention)
	if err != nil {
		log.Errorf("marshal new mention error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, mentionJson, http.StatusCreated)
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	allMentions, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all mentions error: %s", err)
		http.Error(w, "get all mentions error", http.StatusInternalServerError)
		return
	}

	allMentionsJson, err := json.Marshal(allMentions)
	if err != nil {
		log.Errorf("marshal all mentions error: %s", err)
		http.Error(w, "marshal all mentions error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allMentionsJson)
}

func (handler *Handler) handleDeleteMention(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.DeleteMention(r.Context(), id); err != nil {
		if errors.Is(err, ErrMentionNotFound) {
			http.Error(w, "error, mention not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete mention %d: %s", id, err)
		http.Error(w, "error, mention not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}
