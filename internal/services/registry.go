package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService         AuthService
	SellerService       SellerService
	ClientService       ClientService
	FeedbackService     FeedbackService
	NotificationService NotificationService
	TenantResolver      TenantResolver
	AttachmentService   AttachmentService

	// FanOut is shared with the websocket hub and drained on shutdown.
	FanOut *FeedbackFanOut
}
