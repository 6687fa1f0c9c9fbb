package contact

import (
	"context"
	"errors"
	"time"

	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMessageNotFound = errors.New("contact message not found")

var _ messagesRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddMessage(ctx context.Context, message *Message) error {
	if message.Status == "" {
		message.Status = StatusNew
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	return r.db.QueryRow(
		ctx,
		`INSERT INTO contact_message (name, email, message, country, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;`,
		message.Name, message.Email, message.Message, message.Country, message.Status, message.CreatedAt,
	).Scan(&message.ID)
}

func (r *Repo) UpdateMessageStatus(ctx context.Context, id int, status string) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE contact_message SET status = $1 WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *Repo) DeleteMessage(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contact_message WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *Repo) All(ctx context.Context) ([]*Message, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contactRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, email, message, country, status, created_at
			FROM contact_message ORDER BY created_at DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2messages(rows)
}

func (r *Repo) GetStats(ctx context.Context) (*Stats, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "contactRepo.GetStats")
	defer span.End()

	var stats Stats
	if err := r.db.QueryRow(
		ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'new'),
			COUNT(*) FILTER (WHERE status = 'read'),
			COUNT(*) FILTER (WHERE status = 'replied')
		FROM contact_message;`,
	).Scan(&stats.Total, &stats.New, &stats.Read, &stats.Replied); err != nil {
		return nil, err
	}
	return &stats, nil
}

func rows2messages(rows pgx.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Email, &m.Message, &m.Country, &m.Status, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, nil
}
