package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/birdboard/birdboard-backend/internal/logging"
	"github.com/birdboard/birdboard-backend/internal/projects/domain"
)

// ProjectStore is the persistence contract for projects.
type ProjectStore interface {
	Create(ctx context.Context, ownerID string, in domain.CreateProjectInput) (*domain.Project, error)
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Project, error)
	UpdateNotes(ctx context.Context, id, notes string) (*domain.Project, error)
}

// TaskStore is the persistence contract for tasks.
type TaskStore interface {
	Create(ctx context.Context, projectID, body string) (*domain.Task, error)
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	Update(ctx context.Context, id string, in domain.UpdateTaskInput) (*domain.Task, error)
}

// ListCache caches an owner's project list. Set only stores items when gen
// still matches the owner's generation, which Invalidate bumps.
type ListCache interface {
	Get(ctx context.Context, ownerID string) ([]domain.Project, bool, error)
	Generation(ctx context.Context, ownerID string) (int64, error)
	Set(ctx context.Context, ownerID string, gen int64, items []domain.Project) (bool, error)
	Invalidate(ctx context.Context, ownerID string) error
}

// ProjectService handles project-related business logic. Every method takes
// the caller's user id explicitly; an empty id is a guest.
type ProjectService struct {
	projects ProjectStore
	tasks    TaskStore
	cache    ListCache
}

// NewProjectService creates a new project service. cache may be nil.
func NewProjectService(projects ProjectStore, tasks TaskStore, cache ListCache) *ProjectService {
	return &ProjectService{
		projects: projects,
		tasks:    tasks,
		cache:    cache,
	}
}

// List returns the caller's projects in creation order.
func (s *ProjectService) List(ctx context.Context, userID string) ([]domain.Project, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	log := logging.FromContext(ctx).WithField("operation", "projects.list")
	cacheable := false
	var gen int64
	if s.cache != nil {
		items, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			log.WithError(err).Warn("project list cache read failed")
		} else if ok {
			return items, nil
		}

		// The generation must be read before the store so a concurrent
		// invalidation makes the Set below a no-op.
		if gen, err = s.cache.Generation(ctx, userID); err != nil {
			log.WithError(err).Warn("project list cache generation read failed")
		} else {
			cacheable = true
		}
	}

	items, err := s.projects.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, userID, gen, items)
		if err != nil {
			log.WithError(err).Warn("project list cache write failed")
		} else if !stored {
			log.Debug("project list changed while loading, not cached")
		}
	}
	return items, nil
}

// Show returns the project with its tasks once the caller passes the policy.
func (s *ProjectService) Show(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	p, err := s.Authorize(ctx, userID, projectID, domain.ActionView)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Tasks = tasks
	return p, nil
}

// Create validates in and stores a project owned by the caller.
func (s *ProjectService) Create(ctx context.Context, userID string, in domain.CreateProjectInput) (*domain.Project, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.projects.Create(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"operation":  "projects.create",
		"project_id": p.ID,
		"owner_id":   userID,
	}).Info("project created")
	return p, nil
}

// UpdateNotes changes the notes of a project the caller owns. Other fields
// cannot be changed through this path.
func (s *ProjectService) UpdateNotes(ctx context.Context, userID, projectID string, in domain.UpdateProjectInput) (*domain.Project, error) {
	p, err := s.Authorize(ctx, userID, projectID, domain.ActionUpdate)
	if err != nil {
		return nil, err
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Notes == nil {
		return p, nil
	}

	updated, err := s.projects.UpdateNotes(ctx, p.ID, *in.Notes)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, p.OwnerID)
	return updated, nil
}

// Authorize resolves projectID and checks that the caller may perform action
// on it.
func (s *ProjectService) Authorize(ctx context.Context, userID, projectID string, action domain.Action) (*domain.Project, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(action, userID, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) invalidate(ctx context.Context, ownerID string) {
	invalidateList(ctx, s.cache, ownerID)
}

func invalidateList(ctx context.Context, cache ListCache, ownerID string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, ownerID); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("owner_id", ownerID).
			Warn("project list cache invalidation failed")
	}
}
