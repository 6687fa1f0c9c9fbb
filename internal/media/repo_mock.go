package media

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ mentionsRepo = (*repoMock)(nil)

type repoMock struct {
	Mentions map[int]*Mention
	nextID   int
	mutex    sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Mentions: make(map[int]*Mention),
		nextID:   1,
	}
}

func (r *repoMock) AddMention(_ context.Context, mention *Mention) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if mention.Publication == "" || mention.Title == "" || mention.URL == "" {
		return ErrMentionInvalid
	}
	if mention.Date.IsZero() {
		mention.Date = time.Now()
	}

	mention.ID = r.nextID
	r.nextID++
	r.Mentions[mention.ID] = mention
	return nil
}

func (r *repoMock) DeleteMention(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Mentions[id]; !ok {
		return ErrMentionNotFound
	}
	delete(r.Mentions, id)
	return nil
}

func (r *repoMock) All(_ context.Context) ([]*Mention, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.allSorted(), nil
}

func (r *repoMock) MentionsCount(_ context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Mentions), nil
}

func (r *repoMock) GetMentionsPage(_ context.Context, page, size int) ([]*Mention, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	all := r.allSorted()

	startIndex := (page - 1) * size
	if startIndex >= len(all) {
		return []*Mention{}, nil
	}

	endIndex := startIndex + size
	if endIndex > len(all) {
		endIndex = len(all)
	}

	return all[startIndex:endIndex], nil
}

// allSorted assumes the mutex is held
func (r *repoMock) allSorted() []*Mention {
	var mentions []*Mention
	for id := range r.Mentions {
		mentions = append(mentions, r.Mentions[id])
	}
	sort.Slice(mentions, func(i, j int) bool {
		return mentions[i].Date.After(mentions[j].Date)
	})
	return mentions
}
