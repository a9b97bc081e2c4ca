package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	PublicHandler   *PublicHandler
	AuthHandler     *AuthHandler
	AdminHandler    *AdminHandler
	SellerHandler   *SellerHandler
	ClientHandler   *ClientHandler
	FeedbackHandler *FeedbackHandler
}
