package http

import "github.com/birdboard/birdboard-backend/internal/projects/service"

// Handler bundles the dependencies for project and task endpoints.
type Handler struct {
	projects  *service.ProjectService
	tasks     *service.TaskService
	loginPath string
}

func New(projects *service.ProjectService, tasks *service.TaskService, loginPath string) *Handler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Handler{
		projects:  projects,
		tasks:     tasks,
		loginPath: loginPath,
	}
}

type formField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Max      int    `json:"max,omitempty"`
}

type formView struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []formField `json:"fields"`
}
