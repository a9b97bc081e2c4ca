package handlers

import (
	"net/http"

	"reviewflow/internal/services"
	"reviewflow/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the QR review form. No authentication.
type PublicHandler struct {
	*BaseHandler
	resolver        services.TenantResolver
	feedbackService services.FeedbackService
}

func NewPublicHandler(base *BaseHandler, resolver services.TenantResolver, feedbackService services.FeedbackService) *PublicHandler {
	return &PublicHandler{
		BaseHandler:     base,
		resolver:        resolver,
		feedbackService: feedbackService,
	}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	public := rg.Group("/public")
	{
		public.GET("/tenants/:slug", h.GetTenant)
		public.POST("/tenants/:slug/feedback", h.SubmitFeedback)
		public.POST("/feedback", h.SubmitLegacyFeedback)
		public.GET("/smart-url", h.SmartURL)
	}
}

func (h *PublicHandler) GetTenant(c *gin.Context) {
	tenant, err := h.resolver.Resolve(c.Request.Context(), h.GetDB(c), c.Param("slug"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resolver.PublicProfile(tenant))
}

// SubmitFeedback: ?target= overrides the tenant review URL.
func (h *PublicHandler) SubmitFeedback(c *gin.Context) {
	var req dto.SubmitFeedbackRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	outcome, err := h.feedbackService.Submit(c.Request.Context(), h.GetDB(c), c.Param("slug"), &req, c.Query("target"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *PublicHandler) SubmitLegacyFeedback(c *gin.Context) {
	var req dto.SubmitFeedbackRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	outcome, err := h.feedbackService.SubmitLegacy(c.Request.Context(), h.GetDB(c), &req, c.Query("target"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *PublicHandler) SmartURL(c *gin.Context) {
	url, err := h.resolver.SmartURL(c.Query("target"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SmartURLResponse{URL: url})
}
