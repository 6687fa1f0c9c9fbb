package blog

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Post struct {
	ID        int       `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Teaser    string    `json:"teaser"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	ReadTime  string    `json:"readTime"`
	CreatedAt time.Time `json:"date"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a url-safe slug from a post title
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

const wordsPerMinute = 200

// EstimateReadTime gives the "N min read" label shown next to a post,
// based on an average reading speed
func EstimateReadTime(content string) string {
	words := len(strings.Fields(content))
	minutes := words / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}
