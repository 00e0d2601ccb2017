package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/birdboard/birdboard-backend/internal/logging"
	"github.com/birdboard/birdboard-backend/internal/projects/domain"
)

// TaskService handles task business logic. Tasks are authorized through the
// project they belong to.
type TaskService struct {
	projects ProjectStore
	tasks    TaskStore
	cache    ListCache
}

// NewTaskService creates a new task service. cache may be nil.
func NewTaskService(projects ProjectStore, tasks TaskStore, cache ListCache) *TaskService {
	return &TaskService{
		projects: projects,
		tasks:    tasks,
		cache:    cache,
	}
}

// Add appends a task to a project the caller owns and returns the task with
// its project.
func (s *TaskService) Add(ctx context.Context, userID, projectID string, in domain.CreateTaskInput) (*domain.Task, *domain.Project, error) {
	if userID == "" {
		return nil, nil, domain.ErrUnauthenticated
	}

	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if err := domain.Authorize(domain.ActionUpdate, userID, p); err != nil {
		return nil, nil, err
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	t, err := s.tasks.Create(ctx, p.ID, in.Body)
	if err != nil {
		return nil, nil, err
	}

	invalidateList(ctx, s.cache, p.OwnerID)
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"operation":  "tasks.add",
		"project_id": p.ID,
		"task_id":    t.ID,
	}).Info("task added")
	return t, p, nil
}

// Update changes body and/or completed on a task of a project the caller owns.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, in domain.UpdateTaskInput) (*domain.Task, *domain.Project, error) {
	return s.update(ctx, userID, "", taskID, in)
}

// UpdateInProject is Update addressed through the parent project; a task that
// does not belong to projectID is reported as not found.
func (s *TaskService) UpdateInProject(ctx context.Context, userID, projectID, taskID string, in domain.UpdateTaskInput) (*domain.Task, *domain.Project, error) {
	return s.update(ctx, userID, projectID, taskID, in)
}

// Authorize resolves taskID and checks that the caller may update it. A
// non-empty projectID must be the task's project, otherwise the task is
// reported as not found.
func (s *TaskService) Authorize(ctx context.Context, userID, projectID, taskID string) (*domain.Task, *domain.Project, error) {
	if userID == "" {
		return nil, nil, domain.ErrUnauthenticated
	}

	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if projectID != "" && t.ProjectID != projectID {
		return nil, nil, domain.ErrTaskNotFound
	}

	p, err := s.projects.FindByID(ctx, t.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if err := domain.Authorize(domain.ActionUpdate, userID, p); err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

func (s *TaskService) update(ctx context.Context, userID, projectID, taskID string, in domain.UpdateTaskInput) (*domain.Task, *domain.Project, error) {
	t, p, err := s.Authorize(ctx, userID, projectID, taskID)
	if err != nil {
		return nil, nil, err
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	updated, err := s.tasks.Update(ctx, t.ID, in)
	if err != nil {
		return nil, nil, err
	}

	invalidateList(ctx, s.cache, p.OwnerID)
	return updated, p, nil
}
