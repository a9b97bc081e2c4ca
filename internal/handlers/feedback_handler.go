package handlers

import (
	"net/http"

	"reviewflow/internal/middleware"
	"reviewflow/internal/services"
	"reviewflow/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler serves the dashboard inbox. The inbox is always derived
// from the session, so the same routes are mounted under every role group.
type FeedbackHandler struct {
	*BaseHandler
	feedbackService services.FeedbackService
}

func NewFeedbackHandler(base *BaseHandler, feedbackService services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		BaseHandler:     base,
		feedbackService: feedbackService,
	}
}

// RegisterInbox mounts /feedback under an already authenticated group.
func (h *FeedbackHandler) RegisterInbox(rg *gin.RouterGroup, readPerm, deletePerm string) {
	inbox := rg.Group("/feedback")
	{
		inbox.GET("", middleware.RequirePermission(readPerm), h.List)
		inbox.GET("/stats", middleware.RequirePermission(readPerm), h.Stats)
		inbox.GET("/search", middleware.RequirePermission(readPerm), h.Search)
		inbox.DELETE("/:id", middleware.RequirePermission(deletePerm), h.Delete)
	}
}

func (h *FeedbackHandler) List(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	page, pageSize := ParsePagination(c)

	list, err := h.feedbackService.List(h.GetDB(c), actor, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *FeedbackHandler) Stats(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	stats, err := h.feedbackService.Stats(h.GetDB(c), actor)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *FeedbackHandler) Search(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	var query dto.FeedbackSearchQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	items, err := h.feedbackService.Search(c.Request.Context(), h.GetDB(c), actor, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *FeedbackHandler) Delete(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	if err := h.feedbackService.Delete(c.Request.Context(), h.GetDB(c), actor, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
