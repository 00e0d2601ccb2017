package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/birdboard/birdboard-backend/internal/auth"
	"github.com/birdboard/birdboard-backend/internal/logging"
	"github.com/birdboard/birdboard-backend/internal/projects/domain"
)

func (h *Handler) list(c *gin.Context) {
	items, err := h.projects.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *Handler) createForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"form": formView{
		Action: "/projects",
		Method: http.MethodPost,
		Fields: []formField{
			{Name: "title", Type: "text", Required: true},
			{Name: "description", Type: "textarea", Required: true},
			{Name: "notes", Type: "textarea", Max: domain.MaxNotesLength},
		},
	}})
}

func (h *Handler) store(c *gin.Context) {
	var in domain.CreateProjectInput
	if !h.bind(c, &in, nil) {
		return
	}

	p, err := h.projects.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, p.Path())
}

func (h *Handler) show(c *gin.Context) {
	p, err := h.projects.Show(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *Handler) update(c *gin.Context) {
	var in domain.UpdateProjectInput
	if !h.bind(c, &in, func(ctx context.Context) error {
		_, err := h.projects.Authorize(ctx, auth.UserID(c), c.Param("id"), domain.ActionUpdate)
		return err
	}) {
		return
	}

	p, err := h.projects.UpdateNotes(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, p.Path())
}

func (h *Handler) storeTask(c *gin.Context) {
	var in domain.CreateTaskInput
	if !h.bind(c, &in, func(ctx context.Context) error {
		_, err := h.projects.Authorize(ctx, auth.UserID(c), c.Param("id"), domain.ActionUpdate)
		return err
	}) {
		return
	}

	_, p, err := h.tasks.Add(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, p.Path())
}

func (h *Handler) updateTask(c *gin.Context) {
	var in domain.UpdateTaskInput
	if !h.bind(c, &in, func(ctx context.Context) error {
		_, _, err := h.tasks.Authorize(ctx, auth.UserID(c), "", c.Param("id"))
		return err
	}) {
		return
	}

	_, p, err := h.tasks.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, p.Path())
}

func (h *Handler) updateProjectTask(c *gin.Context) {
	var in domain.UpdateTaskInput
	if !h.bind(c, &in, func(ctx context.Context) error {
		_, _, err := h.tasks.Authorize(ctx, auth.UserID(c), c.Param("id"), c.Param("task_id"))
		return err
	}) {
		return
	}

	_, p, err := h.tasks.UpdateInProject(c.Request.Context(), auth.UserID(c), c.Param("id"), c.Param("task_id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, p.Path())
}

// bind reads a JSON or form body into dst. An empty body leaves dst zeroed.
// A malformed body is only reported as 400 once authorize passes, so callers
// without access get the same 302, 403 or 404 as for a well-formed body.
func (h *Handler) bind(c *gin.Context, dst any, authorize func(ctx context.Context) error) bool {
	err := c.ShouldBind(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	if authorize != nil {
		if err := authorize(c.Request.Context()); err != nil {
			h.respondError(c, err)
			return false
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
	return false
}

func (h *Handler) respondError(c *gin.Context, err error) {
	if ve, ok := domain.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "The given data was invalid.",
			"errors":  ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		c.Redirect(http.StatusFound, h.loginPath)
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "This action is unauthorized."})
	case errors.Is(err, domain.ErrProjectNotFound), errors.Is(err, domain.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).
			WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
