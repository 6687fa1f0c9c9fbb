package media

import (
	"context"
	"errors"
	"time"

	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrMentionNotFound = errors.New("media mention not found")
	ErrMentionInvalid  = errors.New("media mention publication, title or url empty")
)

var _ mentionsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddMention(ctx context.Context, mention *Mention) error {
	if mention.Publication == "" || mention.Title == "" || mention.URL == "" {
		return ErrMentionInvalid
	}

	if mention.Date.IsZero() {
		mention.Date = time.Now()
	}
	if mention.CreatedAt.IsZero() {
		mention.CreatedAt = time.Now()
	}

	return r.db.QueryRow(
		ctx,
		`INSERT INTO media_mention (publication, title, excerpt, url, date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;`,
		mention.Publication, mention.Title, mention.Excerpt, mention.URL, mention.Date, mention.CreatedAt,
	).Scan(&mention.ID)
}

func (r *Repo) DeleteMention(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_mention WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMentionNotFound
	}
	return nil
}

func (r *Repo) All(ctx context.Context) ([]*Mention, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mediaRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, publication, title, excerpt, url, date, created_at
			FROM media_mention ORDER BY date DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2mentions(rows)
}

func (r *Repo) MentionsCount(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mediaRepo.MentionsCount")
	defer span.End()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM media_mention`).Scan(&count); err != nil {
		return -1, err
	}
	return count, nil
}

func (r *Repo) GetMentionsPage(ctx context.Context, page, size int) ([]*Mention, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mediaRepo.GetMentionsPage")
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, publication, title, excerpt, url, date, created_at
			FROM media_mention
			ORDER BY date DESC
			LIMIT $1
			OFFSET $2;`,
		size, (page-1)*size,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2mentions(rows)
}

func rows2mentions(rows pgx.Rows) ([]*Mention, error) {
	var mentions []*Mention
	for rows.Next() {
		var m Mention
		if err := rows.Scan(
			&m.ID, &m.Publication, &m.Title, &m.Excerpt, &m.URL, &m.Date, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		mentions = append(mentions, &m)
	}
	return mentions, nil
}
