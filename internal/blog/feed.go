package blog

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"
	"github.com/myazlifresh/foundersite/pkg"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const (
	feedCacheExpire = 60 * 10 // seconds

	rssCacheKey     = "feed::rss"
	sitemapCacheKey = "feed::sitemap"
)

// Feed renders the RSS feed and the sitemap from stored posts. Both
// are rebuilt at most every 10 minutes, the post handlers also
// invalidate the cache on any post change.
type Feed struct {
	repo     postsRepo
	cache    *freecache.Cache
	baseURL  string
	siteName string
}

func NewFeed(repo postsRepo, baseURL, siteName string) *Feed {
	megabyte := 1024 * 1024
	return &Feed{
		repo:     repo,
		cache:    freecache.NewCache(1 * megabyte),
		baseURL:  baseURL,
		siteName: siteName,
	}
}

func (f *Feed) Invalidate() {
	f.cache.Del([]byte(rssCacheKey))
	f.cache.Del([]byte(sitemapCacheKey))
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	PubDate     string `xml:"pubDate"`
	Guid        string `xml:"guid"`
}

type sitemapUrlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	Urls    []sitemapUrl `xml:"url"`
}

type sitemapUrl struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (f *Feed) handleRss(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogFeed.rss")
	defer span.End()

	if cached, err := f.cache.Get([]byte(rssCacheKey)); err == nil {
		log.Tracef("serving rss feed from cache")
		pkg.WriteResponseBytesOK(w, pkg.ContentType.XML, cached)
		return
	}

	posts, err := f.repo.All(ctx)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("get posts: %s", err))
		log.Errorf("rss feed, get posts: %s", err)
		http.Error(w, "failed to generate rss feed", http.StatusInternalServerError)
		return
	}

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       f.siteName,
			Link:        f.baseURL,
			Description: fmt.Sprintf("Latest posts from %s", f.siteName),
		},
	}
	for _, post := range posts {
		postUrl := fmt.Sprintf("%s/blog/%s", f.baseURL, post.Slug)
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       post.Title,
			Link:        postUrl,
			Description: post.Teaser,
			Category:    post.Category,
			PubDate:     post.CreatedAt.Format(http.TimeFormat),
			Guid:        postUrl,
		})
	}

	feedBytes, err := xml.Marshal(feed)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("marshal feed: %s", err))
		log.Errorf("rss feed, marshal: %s", err)
		http.Error(w, "failed to generate rss feed", http.StatusInternalServerError)
		return
	}
	feedBytes = append([]byte(xml.Header), feedBytes...)

	if err := f.cache.Set([]byte(rssCacheKey), feedBytes, feedCacheExpire); err != nil {
		log.Errorf("failed to cache rss feed: %s", err)
	}

	span.SetStatus(codes.Ok, fmt.Sprintf("rss feed with %d posts", len(posts)))
	pkg.WriteResponseBytesOK(w, pkg.ContentType.XML, feedBytes)
}

func (f *Feed) handleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogFeed.sitemap")
	defer span.End()

	if cached, err := f.cache.Get([]byte(sitemapCacheKey)); err == nil {
		log.Tracef("serving sitemap from cache")
		pkg.WriteResponseBytesOK(w, pkg.ContentType.XML, cached)
		return
	}

	posts, err := f.repo.All(ctx)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("get posts: %s", err))
		log.Errorf("sitemap, get posts: %s", err)
		http.Error(w, "failed to generate sitemap", http.StatusInternalServerError)
		return
	}

	urlSet := sitemapUrlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		Urls: []sitemapUrl{
			{Loc: f.baseURL},
			{Loc: f.baseURL + "/blog"},
			{Loc: f.baseURL + "/media"},
			{Loc: f.baseURL + "/contact"},
		},
	}
	for _, post := range posts {
		urlSet.Urls = append(urlSet.Urls, sitemapUrl{
			Loc:     fmt.Sprintf("%s/blog/%s", f.baseURL, post.Slug),
			LastMod: post.CreatedAt.Format("2006-01-02"),
		})
	}

	sitemapBytes, err := xml.Marshal(urlSet)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("marshal sitemap: %s", err))
		log.Errorf("sitemap, marshal: %s", err)
		http.Error(w, "failed to generate sitemap", http.StatusInternalServerError)
		return
	}
	sitemapBytes = append([]byte(xml.Header), sitemapBytes...)

	if err := f.cache.Set([]byte(sitemapCacheKey), sitemapBytes, feedCacheExpire); err != nil {
		log.Errorf("failed to cache sitemap: %s", err)
	}

	span.SetStatus(codes.Ok, fmt.Sprintf("sitemap with %d urls", len(urlSet.Urls)))
	pkg.WriteResponseBytesOK(w, pkg.ContentType.XML, sitemapBytes)
}
