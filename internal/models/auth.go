// Входные/выходные модели REST API платформы (auth).
package models

// LoginRequest — вход по e-mail и паролю.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FederatedLoginRequest — вход через внешнего провайдера.
// Credential — токен, полученный браузером у провайдера; рукопожатие с провайдером
// за пределами этого сервиса, результат — такая же пара токенов, как у LoginRequest.
type FederatedLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// TokenPair — ответ login-эндпойнтов.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResult — ответ POST /token/refresh.
// Refresh заполнен, только если сервер ротирует refresh-токен.
type RefreshResult struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type RevokeRequest struct {
	Refresh string `json:"refresh"`
}
