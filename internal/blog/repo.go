package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrPostNotFound            = errors.New("post not found")
	ErrPostTitleOrContentEmpty = errors.New("post title or content empty")
)

var _ postsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// AddPost stores a new post and sets its generated id. The slug column
// carries a unique constraint, a collision surfaces as a pg unique
// violation for the handler to map.
func (r *Repo) AddPost(ctx context.Context, post *Post) error {
	if post.Content == "" || post.Title == "" {
		return ErrPostTitleOrContentEmpty
	}

	if post.Slug == "" {
		post.Slug = Slugify(post.Title)
	}
	if post.ReadTime == "" {
		post.ReadTime = EstimateReadTime(post.Content)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}

	return r.db.QueryRow(
		ctx,
		`INSERT INTO post (slug, title, teaser, content, category, read_time, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;`,
		post.Slug, post.Title, post.Teaser, post.Content, post.Category, post.ReadTime, post.CreatedAt,
	).Scan(&post.ID)
}

// UpdatePost updates everything except the slug and created_at, so
// published urls stay stable
func (r *Repo) UpdatePost(ctx context.Context, post *Post) error {
	if post.Content == "" || post.Title == "" {
		return ErrPostTitleOrContentEmpty
	}
	if post.ReadTime == "" {
		post.ReadTime = EstimateReadTime(post.Content)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE post SET title = $1, teaser = $2, content = $3, category = $4, read_time = $5 WHERE slug = $6`,
		post.Title, post.Teaser, post.Content, post.Category, post.ReadTime, post.Slug,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) DeletePost(ctx context.Context, slug string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM post WHERE slug = $1`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) GetPost(ctx context.Context, slug string) (*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.GetPost")
	span.SetAttributes(attribute.String("slug", slug))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, slug, title, teaser, content, category, read_time, created_at
			FROM post WHERE slug = $1;`,
		slug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrPostNotFound
	}

	return scanPost(rows)
}

func (r *Repo) All(ctx context.Context) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, slug, title, teaser, content, category, read_time, created_at
			FROM post ORDER BY created_at DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2posts(rows)
}

func (r *Repo) PostsCount(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.PostsCount")
	defer span.End()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM post`).Scan(&count); err != nil {
		return -1, err
	}
	return count, nil
}

func (r *Repo) GetPostsPage(ctx context.Context, page, size int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.GetPostsPage")
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))
	defer span.End()

	limit := size
	offset := (page - 1) * size

	log.Tracef("getting posts, limit %d, offset %d", limit, offset)

	rows, err := r.db.Query(
		ctx,
		`SELECT id, slug, title, teaser, content, category, read_time, created_at
			FROM post
			ORDER BY created_at DESC
			LIMIT $1
			OFFSET $2;`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2posts(rows)
}

// SearchPosts matches the query against title, teaser and content,
// case-insensitively, newest first
func (r *Repo) SearchPosts(ctx context.Context, query string, limit int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.SearchPosts")
	span.SetAttributes(attribute.String("query", query))
	defer span.End()

	pattern := fmt.Sprintf("%%%s%%", query)
	rows, err := r.db.Query(
		ctx,
		`SELECT id, slug, title, teaser, content, category, read_time, created_at
			FROM post
			WHERE title ILIKE $1 OR teaser ILIKE $1 OR content ILIKE $1
			ORDER BY created_at DESC
			LIMIT $2;`,
		pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2posts(rows)
}

func scanPost(rows pgx.Rows) (*Post, error) {
	var post Post
	if err := rows.Scan(
		&post.ID, &post.Slug, &post.Title, &post.Teaser,
		&post.Content, &post.Category, &post.ReadTime, &post.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &post, nil
}

func rows2posts(rows pgx.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}
