package http

import "github.com/gin-gonic/gin"

// Register attaches project and task routes. rg is expected to sit behind
// auth.RequireUser.
func (h *Handler) Register(rg gin.IRoutes) {
	rg.GET("/projects", h.list)
	rg.GET("/projects/create", h.createForm)
	rg.POST("/projects", h.store)
	rg.GET("/projects/:id", h.show)
	rg.PATCH("/projects/:id", h.update)

	rg.POST("/projects/:id/tasks", h.storeTask)
	rg.PATCH("/projects/:id/tasks/:task_id", h.updateProjectTask)
	rg.PATCH("/tasks/:id", h.updateTask)
}
