package blog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ postsRepo = (*repoMock)(nil)

type repoMock struct {
	Posts map[string]*Post
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Posts: make(map[string]*Post),
	}
}

func (r *repoMock) AddPost(_ context.Context, post *Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if post.Content == "" || post.Title == "" {
		return ErrPostTitleOrContentEmpty
	}
	if post.Slug == "" {
		post.Slug = Slugify(post.Title)
	}
	if post.ReadTime == "" {
		post.ReadTime = EstimateReadTime(post.Content)
	}

	if _, ok := r.Posts[post.Slug]; ok {
		// same shape of error the real repo surfaces on a slug collision
		return &pgconn.PgError{Code: "23505", ConstraintName: "post_slug_key"}
	}

	post.ID = len(r.Posts) + 1
	r.Posts[post.Slug] = post
	return nil
}

func (r *repoMock) UpdatePost(_ context.Context, post *Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if post.Content == "" || post.Title == "" {
		return ErrPostTitleOrContentEmpty
	}

	stored, ok := r.Posts[post.Slug]
	if !ok {
		return ErrPostNotFound
	}

	stored.Title = post.Title
	stored.Teaser = post.Teaser
	stored.Content = post.Content
	stored.Category = post.Category
	stored.ReadTime = EstimateReadTime(post.Content)
	return nil
}

func (r *repoMock) DeletePost(_ context.Context, slug string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Posts[slug]; !ok {
		return ErrPostNotFound
	}
	delete(r.Posts, slug)
	return nil
}

func (r *repoMock) GetPost(_ context.Context, slug string) (*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[slug]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (r *repoMock) All(_ context.Context) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.allSorted(), nil
}

func (r *repoMock) PostsCount(_ context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Posts), nil
}

func (r *repoMock) GetPostsPage(_ context.Context, page, size int) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	allPosts := r.allSorted()

	startIndex := (page - 1) * size
	if startIndex >= len(allPosts) {
		// the real repo scans zero rows into a nil slice
		return nil, nil
	}

	endIndex := startIndex + size
	if endIndex > len(allPosts) {
		endIndex = len(allPosts)
	}

	return allPosts[startIndex:endIndex], nil
}

func (r *repoMock) SearchPosts(_ context.Context, query string, limit int) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	query = strings.ToLower(query)
	var found []*Post
	for _, post := range r.allSorted() {
		if len(found) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(post.Title), query) ||
			strings.Contains(strings.ToLower(post.Teaser), query) ||
			strings.Contains(strings.ToLower(post.Content), query) {
			found = append(found, post)
		}
	}
	return found, nil
}

// allSorted assumes the mutex is held
func (r *repoMock) allSorted() []*Post {
	var posts []*Post
	for slug := range r.Posts {
		posts = append(posts, r.Posts[slug])
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}
