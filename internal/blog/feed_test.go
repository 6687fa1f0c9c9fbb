package blog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeedSetup(t *testing.T) (*repoMock, *Feed, *mux.Router) {
	t.Helper()

	repo := newRepoMock()
	feed := NewFeed(repo, testBaseURL, "Myazli Fresh")
	handler := NewHandler(repo, feed, nil)

	r := mux.NewRouter()
	handler.SetupRoutes(r.PathPrefix("/api/blog").Subrouter())
	return repo, feed, r
}

func TestFeed_rss(t *testing.T) {
	repo, feed, r := testFeedSetup(t)
	require.NoError(t, repo.AddPost(context.Background(), &Post{
		Title:     "Fresh Start",
		Teaser:    "how it all began",
		Content:   "the content",
		Category:  "founder-notes",
		CreatedAt: time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/blog/rss", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `<rss version="2.0">`)
	assert.Contains(t, body, "<title>Fresh Start</title>")
	assert.Contains(t, body, "<link>"+testBaseURL+"/blog/fresh-start</link>")
	assert.Contains(t, body, "<description>how it all began</description>")
	assert.Contains(t, body, "<pubDate>Mon, 03 Mar 2025 10:00:00 GMT</pubDate>")

	t.Run("cache serves stale until invalidated", func(t *testing.T) {
		require.NoError(t, repo.AddPost(context.Background(), &Post{
			Title:     "Second Post",
			Content:   "more content",
			CreatedAt: time.Now(),
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blog/rss", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "Second Post")

		feed.Invalidate()

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blog/rss", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Second Post")
	})
}

func TestFeed_sitemap(t *testing.T) {
	repo, _, r := testFeedSetup(t)
	require.NoError(t, repo.AddPost(context.Background(), &Post{
		Title:     "Fresh Start",
		Content:   "the content",
		CreatedAt: time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/blog/sitemap", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, body, "<loc>"+testBaseURL+"</loc>")
	assert.Contains(t, body, "<loc>"+testBaseURL+"/blog/fresh-start</loc>")
	assert.Contains(t, body, "<lastmod>2025-03-03</lastmod>")
}
