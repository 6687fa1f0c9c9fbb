package blog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/myazlifresh/foundersite/internal/telemetry/metrics"
	"github.com/myazlifresh/foundersite/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxSearchResults = 20

type postsRepo interface {
	AddPost(ctx context.Context, post *Post) error
	UpdatePost(ctx context.Context, post *Post) error
	DeletePost(ctx context.Context, slug string) error
	GetPost(ctx context.Context, slug string) (*Post, error)
	All(ctx context.Context) ([]*Post, error)
	PostsCount(ctx context.Context) (int, error)
	GetPostsPage(ctx context.Context, page, size int) ([]*Post, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]*Post, error)
}

type PostsPageResponse struct {
	Posts []*Post `json:"posts"`
	Total int     `json:"total"`
}

type savePostRequest struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Teaser   string `json:"teaser"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

type Handler struct {
	repo    postsRepo
	feed    *Feed
	metrics *metrics.Manager
}

func NewHandler(
	repo postsRepo,
	feed *Feed,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:    repo,
		feed:    feed,
		metrics: metrics,
	}
}

// SetupRoutes registers the public, unauthenticated blog routes
func (handler *Handler) SetupRoutes(blogRouter *mux.Router) {
	blogRouter.HandleFunc("/page/{page}/size/{size}", handler.handleGetPage).Methods("GET").Name("posts-page")
	blogRouter.HandleFunc("/post/{slug}", handler.handleGetPost).Methods("GET").Name("get-post")
	blogRouter.HandleFunc("/search", handler.handleSearch).Methods("GET").Name("search-posts")
	blogRouter.HandleFunc("/rss", handler.feed.handleRss).Methods("GET").Name("posts-rss")
	blogRouter.HandleFunc("/sitemap", handler.feed.handleSitemap).Methods("GET").Name("sitemap")
}

// SetupAdminRoutes registers the post management routes, the auth
// middleware guards everything mounted here
func (handler *Handler) SetupAdminRoutes(adminBlogRouter *mux.Router) {
	adminBlogRouter.HandleFunc("", handler.handleNewPost).Methods("POST", "OPTIONS").Name("new-post")
	adminBlogRouter.HandleFunc("/all", handler.handleAll).Methods("GET").Name("all-posts")
	adminBlogRouter.HandleFunc("/{slug}", handler.handleUpdatePost).Methods("PUT", "OPTIONS").Name("update-post")
	adminBlogRouter.HandleFunc("/{slug}", handler.handleDeletePost).Methods("DELETE", "OPTIONS").Name("delete-post")
}

func (handler *Handler) handleNewPost(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req savePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new post, unmarshal json params: %s", err)
		http.Error(w, "add post failed", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "error, content empty", http.StatusBadRequest)
		return
	}

	newPost := &Post{
		Slug:     req.Slug,
		Title:    req.Title,
		Teaser:   req.Teaser,
		Content:  req.Content,
		Category: req.Category,
	}

	if err := handler.repo.AddPost(r.Context(), newPost); err != nil {
		if pkg.IsUniqueViolationError(err) {
			log.Tracef("add new post, slug taken: %s", newPost.Slug)
			http.Error(w, "error, post slug already exists", http.StatusConflict)
			return
		}
		log.Errorf("add new post failed: %s", err)
		http.Error(w, "add new post failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterBlogPosts.Inc()
	handler.feed.Invalidate()
	log.Tracef("new post %d: [%s] added", newPost.ID, newPost.Slug)

	postJson, err := json.Marshal(newPost)
	if err != nil {
		log.Errorf("marshal new post error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, postJson, http.StatusCreated)
}

func (handler *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	slug := mux.Vars(r)["slug"]
	if slug == "" {
		http.Error(w, "error, slug empty", http.StatusBadRequest)
		return
	}

	var req savePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update post, unmarshal json params: %s", err)
		http.Error(w, "update post failed", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "error, content empty", http.StatusBadRequest)
		return
	}

	post := &Post{
		Slug:     slug,
		Title:    req.Title,
		Teaser:   req.Teaser,
		Content:  req.Content,
		Category: req.Category,
	}

	if err := handler.repo.UpdatePost(r.Context(), post); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "error, post not found", http.StatusNotFound)
			return
		}
		log.Errorf("update post [%s] failed: %s", slug, err)
		http.Error(w, "update post failed", http.StatusInternalServerError)
		return
	}

	handler.feed.Invalidate()
	pkg.WriteTextResponseOK(w, "updated:"+slug)
}

func (handler *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	slug := mux.Vars(r)["slug"]
	if slug == "" {
		http.Error(w, "error, slug empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.DeletePost(r.Context(), slug); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "error, post not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete post [%s]: %s", slug, err)
		http.Error(w, "error, post not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	handler.feed.Invalidate()
	pkg.WriteTextResponseOK(w, "deleted:"+slug)
}

func (handler *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	post, err := handler.repo.GetPost(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("get post [%s]: %s", slug, err)
		http.Error(w, "failed to get post", http.StatusInternalServerError)
		return
	}

	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("marshal post error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postJson)
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	allPosts, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all posts error: %s", err)
		http.Error(w, "get all posts error", http.StatusInternalServerError)
		return
	}

	allPostsJson, err := json.Marshal(allPosts)
	if err != nil {
		log.Errorf("marshal all posts error: %s", err)
		http.Error(w, "marshal all posts error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allPostsJson)
}

func (handler *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		log.Errorf("handle get posts page, from <page> param: %s", err)
		http.Error(w, "invalid parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		log.Errorf("handle get posts page, from <size> param: %s", err)
		http.Error(w, "invalid parameter <size>", http.StatusBadRequest)
		return
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be a positive value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be a positive value)", http.StatusBadRequest)
		return
	}

	log.Tracef("get posts - page %d size %d", page, size)

	posts, err := handler.repo.GetPostsPage(r.Context(), page, size)
	if err != nil {
		log.Errorf("get posts page error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	total, err := handler.repo.PostsCount(r.Context())
	if err != nil {
		log.Errorf("get posts count error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	// a page past the end is an empty list, not null
	if posts == nil {
		posts = []*Post{}
	}

	pageRespJson, err := json.Marshal(PostsPageResponse{
		Posts: posts,
		Total: total,
	})
	if err != nil {
		log.Errorf("marshal posts page error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, pageRespJson)
}

func (handler *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "empty search query", http.StatusBadRequest)
		return
	}

	posts, err := handler.repo.SearchPosts(r.Context(), query, maxSearchResults)
	if err != nil {
		log.Errorf("search posts [%s] error: %s", query, err)
		http.Error(w, "failed to search posts", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*Post{}
	}

	postsJson, err := json.Marshal(posts)
	if err != nil {
		log.Errorf("marshal search results error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postsJson)
}
