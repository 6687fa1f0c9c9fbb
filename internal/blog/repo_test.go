//go:build integration_test || all_tests

package blog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/myazlifresh/foundersite/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "foundersite",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func newFakePost() *Post {
	return &Post{
		Slug:     gofakeit.UUID(),
		Title:    gofakeit.Sentence(4),
		Teaser:   gofakeit.Sentence(10),
		Content:  gofakeit.Paragraph(3, 5, 20, " "),
		Category: gofakeit.Word(),
	}
}

func TestRepo_AddGetDeletePost(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	countBefore, err := repo.PostsCount(ctx)
	require.NoError(t, err)

	p1 := newFakePost()
	require.NoError(t, repo.AddPost(ctx, p1))
	require.NotZero(t, p1.ID)
	assert.NotEmpty(t, p1.ReadTime)
	assert.False(t, p1.CreatedAt.IsZero())

	defer func() {
		assert.NoError(t, repo.DeletePost(ctx, p1.Slug))
	}()

	count, err := repo.PostsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, countBefore+1, count)

	stored, err := repo.GetPost(ctx, p1.Slug)
	require.NoError(t, err)
	assert.Equal(t, p1.Title, stored.Title)
	assert.Equal(t, p1.Content, stored.Content)

	t.Run("slug collision", func(t *testing.T) {
		p2 := newFakePost()
		p2.Slug = p1.Slug
		err := repo.AddPost(ctx, p2)
		require.Error(t, err)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := repo.GetPost(ctx, gofakeit.UUID())
		require.ErrorIs(t, err, ErrPostNotFound)
	})
}

func TestRepo_UpdatePost(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	p1 := newFakePost()
	require.NoError(t, repo.AddPost(ctx, p1))
	defer func() {
		assert.NoError(t, repo.DeletePost(ctx, p1.Slug))
	}()

	p1.Title = "updated " + p1.Title
	p1.Content = "updated " + p1.Content
	require.NoError(t, repo.UpdatePost(ctx, p1))

	stored, err := repo.GetPost(ctx, p1.Slug)
	require.NoError(t, err)
	assert.Equal(t, p1.Title, stored.Title)
	assert.Equal(t, p1.Content, stored.Content)

	t.Run("unknown slug", func(t *testing.T) {
		p2 := newFakePost()
		require.ErrorIs(t, repo.UpdatePost(ctx, p2), ErrPostNotFound)
	})
}

func TestRepo_SearchPosts(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	needle := gofakeit.UUID()
	p1 := newFakePost()
	p1.Content = "some words around the needle " + needle + " and more words"
	require.NoError(t, repo.AddPost(ctx, p1))
	defer func() {
		assert.NoError(t, repo.DeletePost(ctx, p1.Slug))
	}()

	found, err := repo.SearchPosts(ctx, needle, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p1.Slug, found[0].Slug)
}
