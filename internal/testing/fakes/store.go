// Package fakes provides in-memory stand-ins for the Postgres repositories so
// service and HTTP tests can run without a database.
package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/birdboard/birdboard-backend/internal/projects/domain"
	"github.com/birdboard/birdboard-backend/internal/users"
)

// Store holds users, projects and tasks. Use Projects(), Tasks() and Users()
// to get the repository views.
type Store struct {
	mu sync.Mutex

	projects     map[string]domain.Project
	projectOrder []string
	tasks        map[string]domain.Task
	taskOrder    []string
	users        map[string]string // external uid -> user id

	seq   int
	clock time.Time

	// Err, when set, is returned by every repository call.
	Err error
	// ListCalls counts ListByOwner calls.
	ListCalls int
}

func NewStore() *Store {
	return &Store{
		projects: make(map[string]domain.Project),
		tasks:    make(map[string]domain.Task),
		users:    make(map[string]string),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *Store) Projects() *ProjectRepo { return &ProjectRepo{s: s} }
func (s *Store) Tasks() *TaskRepo       { return &TaskRepo{s: s} }
func (s *Store) Users() *UserRepo       { return &UserRepo{s: s} }

// tick advances the fake clock so creation order is strict. Caller holds mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// AllTasks returns every stored task in creation order.
func (s *Store) AllTasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		out = append(out, s.tasks[id])
	}
	return out
}

// AllProjects returns every stored project in creation order.
func (s *Store) AllProjects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, s.projects[id])
	}
	return out
}

type ProjectRepo struct{ s *Store }

func (r *ProjectRepo) Create(_ context.Context, ownerID string, in domain.CreateProjectInput) (*domain.Project, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	s.seq++
	now := s.tick()
	p := domain.Project{
		ID:          fmt.Sprintf("proj-%05d-0000", s.seq),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.projects[p.ID] = p
	s.projectOrder = append(s.projectOrder, p.ID)
	return &p, nil
}

func (r *ProjectRepo) FindByID(_ context.Context, id string) (*domain.Project, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return &p, nil
}

func (r *ProjectRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Project, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]domain.Project, 0)
	for _, id := range s.projectOrder {
		if p := s.projects[id]; p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProjectRepo) UpdateNotes(_ context.Context, id, notes string) (*domain.Project, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	p.Notes = notes
	p.UpdatedAt = s.tick()
	s.projects[id] = p
	return &p, nil
}

type TaskRepo struct{ s *Store }

func (r *TaskRepo) Create(_ context.Context, projectID, body string) (*domain.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	p, ok := s.projects[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	now := s.tick()
	t := domain.Task{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t
	s.taskOrder = append(s.taskOrder, t.ID)

	p.UpdatedAt = now
	s.projects[projectID] = p
	return &t, nil
}

func (r *TaskRepo) FindByID(_ context.Context, id string) (*domain.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (r *TaskRepo) ListByProject(_ context.Context, projectID string) ([]domain.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]domain.Task, 0)
	for _, id := range s.taskOrder {
		if t := s.tasks[id]; t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *TaskRepo) Update(_ context.Context, id string, in domain.UpdateTaskInput) (*domain.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if in.Body != nil {
		t.Body = *in.Body
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	t.UpdatedAt = s.tick()
	s.tasks[id] = t
	return &t, nil
}

type UserRepo struct{ s *Store }

// EnsureUser maps an external uid to a stable internal id.
func (r *UserRepo) EnsureUser(_ context.Context, u users.UpsertUser) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if u.ExternalUID == "" {
		return "", fmt.Errorf("external uid required")
	}

	if id, ok := s.users[u.ExternalUID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	s.users[u.ExternalUID] = id
	return id, nil
}

// UserID returns the internal id previously assigned to externalUID.
func (s *Store) UserID(externalUID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[externalUID]
}
