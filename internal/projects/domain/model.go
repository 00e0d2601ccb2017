package domain

import (
	"fmt"
	"time"
)

// Project is a unit of work owned by exactly one user. The owner never changes
// after creation. Tasks is only populated when the project is loaded for display.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tasks       []Task    `json:"tasks,omitempty"`
}

// Path is the canonical location of the project.
func (p *Project) Path() string {
	return fmt.Sprintf("/projects/%s", p.ID)
}

// TasksPath is the collection new tasks are posted to.
func (p *Project) TasksPath() string {
	return p.Path() + "/tasks"
}

// Task belongs to a single project and inherits its owner.
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Body      string    `json:"body"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) Path() string {
	return fmt.Sprintf("/tasks/%s", t.ID)
}
