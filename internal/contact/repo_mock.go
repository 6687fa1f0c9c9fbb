package contact

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ messagesRepo = (*repoMock)(nil)

type repoMock struct {
	Messages map[int]*Message
	nextID   int
	mutex    sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Messages: make(map[int]*Message),
		nextID:   1,
	}
}

func (r *repoMock) AddMessage(_ context.Context, message *Message) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if message.Status == "" {
		message.Status = StatusNew
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	message.ID = r.nextID
	r.nextID++
	r.Messages[message.ID] = message
	return nil
}

func (r *repoMock) UpdateMessageStatus(_ context.Context, id int, status string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	m, ok := r.Messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.Status = status
	return nil
}

func (r *repoMock) DeleteMessage(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Messages[id]; !ok {
		return ErrMessageNotFound
	}
	delete(r.Messages, id)
	return nil
}

func (r *repoMock) All(_ context.Context) ([]*Message, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var messages []*Message
	for id := range r.Messages {
		messages = append(messages, r.Messages[id])
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
	return messages, nil
}

func (r *repoMock) GetStats(_ context.Context) (*Stats, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stats := &Stats{Total: len(r.Messages)}
	for _, m := range r.Messages {
		switch m.Status {
		case StatusNew:
			stats.New++
		case StatusRead:
			stats.Read++
		case StatusReplied:
			stats.Replied++
		}
	}
	return stats, nil
}
