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

// SellerHandler - кабинет продавца: профиль, QR, клиенты, инбокс
type SellerHandler struct {
	*BaseHandler
	sellerService services.SellerService
	clientService services.ClientService
	authService   services.AuthService
	inbox         *FeedbackHandler
}

func NewSellerHandler(
	base *BaseHandler,
	sellerService services.SellerService,
	clientService services.ClientService,
	authService services.AuthService,
	inbox *FeedbackHandler,
) *SellerHandler {
	return &SellerHandler{
		BaseHandler:   base,
		sellerService: sellerService,
		clientService: clientService,
		authService:   authService,
		inbox:         inbox,
	}
}

func (h *SellerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	seller := rg.Group("/seller")
	seller.Use(h.requireAuth, middleware.RequireRoles(models.ActorRoleSeller))
	{
		seller.GET("/profile", h.GetProfile)
		seller.PUT("/profile", middleware.RequirePermission(auth.PermProfileWrite), h.UpdateProfile)
		seller.GET("/qr", h.GetQR)

		clients := seller.Group("/clients", middleware.RequirePermission(auth.PermClientsWrite))
		clients.GET("", h.ListClients)
		clients.POST("", h.CreateClient)
		clients.GET("/:id", h.GetClient)
		clients.PUT("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
		clients.POST("/:id/impersonate", h.ImpersonateClient)

		h.inbox.RegisterInbox(seller, auth.PermFeedbackReadOwn, auth.PermFeedbackDeleteOwn)
	}
}

func (h *SellerHandler) GetProfile(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	profile, err := h.sellerService.GetProfile(c.Request.Context(), h.GetDB(c), actor.ID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *SellerHandler) UpdateProfile(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	var req dto.UpdateSellerRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	profile, err := h.sellerService.UpdateProfile(c.Request.Context(), h.GetDB(c), actor.ID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *SellerHandler) GetQR(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	qr, err := h.sellerService.GetQR(c.Request.Context(), h.GetDB(c), actor.ID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, qr)
}

func (h *SellerHandler) ListClients(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	clients, err := h.clientService.ListClients(h.GetDB(c), actor.ID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": clients, "total": len(clients)})
}

func (h *SellerHandler) CreateClient(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	var req dto.CreateClientRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	client, err := h.clientService.CreateClient(c.Request.Context(), h.GetDB(c), actor.ID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *SellerHandler) GetClient(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	client, err := h.clientService.GetClient(h.GetDB(c), actor.ID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *SellerHandler) UpdateClient(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	var req dto.UpdateClientRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	client, err := h.clientService.UpdateClient(c.Request.Context(), h.GetDB(c), actor.ID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *SellerHandler) DeleteClient(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	if err := h.clientService.DeleteClient(c.Request.Context(), h.GetDB(c), actor.ID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SellerHandler) ImpersonateClient(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	session, err := h.authService.ImpersonateClient(c.Request.Context(), h.GetDB(c), actor, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
