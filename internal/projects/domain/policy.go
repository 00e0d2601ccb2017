package domain

// Action names an operation checked by Authorize.
type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
)

// CanUpdate reports whether userID owns the project.
func CanUpdate(userID string, p *Project) bool {
	return p != nil && userID != "" && p.OwnerID == userID
}

// Authorize decides whether userID may perform action on p. Viewing and
// updating share the ownership rule; tasks are authorized through their project.
func Authorize(action Action, userID string, p *Project) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	switch action {
	case ActionView, ActionUpdate:
		if CanUpdate(userID, p) {
			return nil
		}
	}
	return ErrForbidden
}
