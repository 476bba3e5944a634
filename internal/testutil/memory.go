// Package testutil provides in-memory repositories and a live PostgreSQL
// bootstrap for tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johndosdos/msglog/internal/model"
)

// MemUsers is an in-memory user repository.
type MemUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func NewMemUsers() *MemUsers {
	return &MemUsers{users: make(map[string]*model.User)}
}

func (f *MemUsers) Create(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[user.Username]; ok {
		return nil, model.ErrConflict
	}
	u := *user
	u.CreatedAt = time.Now().UTC()
	f.users[u.Username] = &u
	return &u, nil
}

func (f *MemUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[username]
	if !ok {
		return nil, model.ErrNotFound
	}
	return u, nil
}

// MemMessages keeps messages in memory with the repository's ordering.
// When FailCreate is set, Create returns it.
type MemMessages struct {
	mu         sync.Mutex
	nextID     int64
	Msgs       []*model.Message
	FailCreate error
}

// Len returns the number of stored messages.
func (f *MemMessages) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Msgs)
}

func (f *MemMessages) Create(_ context.Context, msg *model.Message) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreate != nil {
		return nil, f.FailCreate
	}
	f.nextID++
	m := *msg
	m.ID = f.nextID
	f.Msgs = append(f.Msgs, &m)
	return &m, nil
}

func (f *MemMessages) filter(keep func(*model.Message) bool) []*model.Message {
	out := []*model.Message{}
	for _, m := range f.Msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *MemMessages) List(_ context.Context, ownerID uuid.UUID, limit, offset uint64) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := f.filter(func(m *model.Message) bool { return m.UserID == ownerID })
	if offset >= uint64(len(all)) {
		return []*model.Message{}, nil
	}
	end := min(offset+limit, uint64(len(all)))
	return all[offset:end], nil
}

func (f *MemMessages) ListByType(_ context.Context, ownerID uuid.UUID, t model.MessageType) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.filter(func(m *model.Message) bool { return m.UserID == ownerID && m.Type == t }), nil
}

func (f *MemMessages) Search(_ context.Context, ownerID uuid.UUID, term string) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	term = strings.ToLower(term)
	return f.filter(func(m *model.Message) bool {
		return m.UserID == ownerID && m.Type == model.MessageText &&
			m.Text != nil && strings.Contains(strings.ToLower(*m.Text), term)
	}), nil
}

func (f *MemMessages) GetByFile(_ context.Context, name string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.Msgs {
		if m.File != nil && *m.File == name {
			return m, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *MemMessages) UpdateCreatedAt(_ context.Context, id int64, ownerID uuid.UUID, createdAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.Msgs {
		if m.ID == id && m.UserID == ownerID {
			m.CreatedAt = createdAt
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *MemMessages) Delete(_ context.Context, id int64, ownerID uuid.UUID) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, m := range f.Msgs {
		if m.ID == id && m.UserID == ownerID {
			f.Msgs = append(f.Msgs[:i], f.Msgs[i+1:]...)
			return m.File, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *MemMessages) DeleteAll(_ context.Context, ownerID uuid.UUID) (int64, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var (
		kept  []*model.Message
		files []string
		n     int64
	)
	for _, m := range f.Msgs {
		if m.UserID != ownerID {
			kept = append(kept, m)
			continue
		}
		n++
		if m.File != nil {
			files = append(files, *m.File)
		}
	}
	f.Msgs = kept
	return n, files, nil
}
