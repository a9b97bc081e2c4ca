package handlers

import (
	"net/http"

	"reviewflow/internal/auth"
	"reviewflow/internal/middleware"
	"reviewflow/internal/models"
	"reviewflow/internal/services"
	"reviewflow/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	*BaseHandler
	sellerService services.SellerService
	authService   services.AuthService
	inbox         *FeedbackHandler
}

func NewAdminHandler(base *BaseHandler, sellerService services.SellerService, authService services.AuthService, inbox *FeedbackHandler) *AdminHandler {
	return &AdminHandler{
		BaseHandler:   base,
		sellerService: sellerService,
		authService:   authService,
		inbox:         inbox,
	}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(h.requireAuth, middleware.RequireRoles(models.ActorRoleAdmin))
	{
		sellers := admin.Group("/sellers", middleware.RequirePermission(auth.PermSellersWrite))
		sellers.GET("", h.ListSellers)
		sellers.POST("", h.CreateSeller)
		sellers.GET("/:id", h.GetSeller)
		sellers.PUT("/:id", h.UpdateSeller)
		sellers.DELETE("/:id", h.DeleteSeller)
		sellers.POST("/:id/impersonate", h.ImpersonateSeller)

		h.inbox.RegisterInbox(admin, auth.PermFeedbackReadAll, auth.PermFeedbackDeleteAll)
	}
}

func (h *AdminHandler) ListSellers(c *gin.Context) {
	sellers, err := h.sellerService.ListSellers(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sellers, "total": len(sellers)})
}

func (h *AdminHandler) CreateSeller(c *gin.Context) {
	var req dto.CreateSellerRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	seller, err := h.sellerService.CreateSeller(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seller)
}

func (h *AdminHandler) GetSeller(c *gin.Context) {
	seller, err := h.sellerService.GetSeller(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (h *AdminHandler) UpdateSeller(c *gin.Context) {
	var req dto.UpdateSellerRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	seller, err := h.sellerService.UpdateSeller(c.Request.Context(), h.GetDB(c), c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (h *AdminHandler) DeleteSeller(c *gin.Context) {
	if err := h.sellerService.DeleteSeller(c.Request.Context(), h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ImpersonateSeller(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	session, err := h.authService.ImpersonateSeller(c.Request.Context(), h.GetDB(c), actor, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
