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

type ClientHandler struct {
	*BaseHandler
	clientService services.ClientService
	inbox         *FeedbackHandler
}

func NewClientHandler(base *BaseHandler, clientService services.ClientService, inbox *FeedbackHandler) *ClientHandler {
	return &ClientHandler{
		BaseHandler:   base,
		clientService: clientService,
		inbox:         inbox,
	}
}

func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	client := rg.Group("/client")
	client.Use(h.requireAuth, middleware.RequireRoles(models.ActorRoleClient))
	{
		client.GET("/profile", h.GetProfile)
		client.PUT("/profile", middleware.RequirePermission(auth.PermProfileWrite), h.UpdateProfile)
		client.GET("/qr", h.GetQR)

		h.inbox.RegisterInbox(client, auth.PermFeedbackReadOwn, auth.PermFeedbackDeleteOwn)
	}
}

func (h *ClientHandler) GetProfile(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	profile, err := h.clientService.GetProfile(h.GetDB(c), actor.ID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ClientHandler) UpdateProfile(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	var req dto.UpdateClientRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	profile, err := h.clientService.UpdateProfile(c.Request.Context(), h.GetDB(c), actor.ID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ClientHandler) GetQR(c *gin.Context) {
	actor, ok := h.GetActor(c)
	if !ok {
		return
	}
	qr, err := h.clientService.GetQR(h.GetDB(c), actor.ID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, qr)
}
