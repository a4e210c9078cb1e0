package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/verolabz/doctweak/internal/core/domain"
)

type memRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	stages   []domain.Stage
}

func newMemRepo() *memRepo {
	return &memRepo{sessions: map[string]*domain.Session{}}
}

func (r *memRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	r.stages = append(r.stages, s.Stage)
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "fake get", fmt.Errorf("id %s", id))
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) Update(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "fake update", fmt.Errorf("id %s", s.ID))
	}
	cp := *s
	r.sessions[s.ID] = &cp
	r.stages = append(r.stages, s.Stage)
	return nil
}

func (r *memRepo) visited(stage domain.Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stages {
		if s == stage {
			return true
		}
	}
	return false
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Save(ctx context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return nil
}

func (s *memStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("fake storage: key %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (q *fakeQueue) PublishEnhancementRequested(ctx context.Context, sessionID string) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, sessionID)
	return nil
}

func (q *fakeQueue) SubscribeEnhancementRequested(ctx context.Context, handler func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (e *fakeExtractor) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	if e.text != "" {
		return e.text, nil
	}
	return string(content), nil
}

type fakeBackend struct {
	id           domain.BackendID
	availableErr error
	enhance      func(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error)
	calls        int
	lastReq      domain.EnhancementRequest
}

func (b *fakeBackend) ID() domain.BackendID { return b.id }

func (b *fakeBackend) Available(ctx context.Context) error { return b.availableErr }

func (b *fakeBackend) Enhance(ctx context.Context, req domain.EnhancementRequest) (*domain.EnhancementResult, error) {
	b.calls++
	b.lastReq = req
	return b.enhance(ctx, req)
}
