package services

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"reviewflow/internal/services/dto"
	"reviewflow/pkg/apperrors"

	"github.com/go-resty/resty/v2"
)

const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// IdentityVerifier checks the sign-in token sent by the public form.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*dto.Identity, error)
}

type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Exp           string `json:"exp"`
}

type googleIdentityVerifier struct {
	client   *resty.Client
	endpoint string
	audience string
	now      func() time.Time
}

// NewGoogleIdentityVerifier validates Google ID tokens through the tokeninfo endpoint.
// An empty audience accepts tokens issued to any client id.
func NewGoogleIdentityVerifier(endpoint, audience string) IdentityVerifier {
	if endpoint == "" {
		endpoint = DefaultTokenInfoURL
	}
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("Accept", "application/json")
	return &googleIdentityVerifier{
		client:   client,
		endpoint: endpoint,
		audience: audience,
		now:      time.Now,
	}
}

func (v *googleIdentityVerifier) Verify(ctx context.Context, idToken string) (*dto.Identity, error) {
	var info googleTokenInfo
	resp, err := v.client.R().
		SetContext(ctx).
		SetQueryParam("id_token", idToken).
		SetResult(&info).
		Get(v.endpoint)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "identity", "Identity provider unavailable", http.StatusBadGateway)
	}
	if resp.IsError() || info.Sub == "" {
		return nil, apperrors.ErrInvalidIdentityToken
	}
	if v.audience != "" && info.Aud != v.audience {
		return nil, apperrors.ErrInvalidIdentityToken
	}
	if exp, err := strconv.ParseInt(info.Exp, 10, 64); err == nil && v.now().Unix() >= exp {
		return nil, apperrors.ErrInvalidIdentityToken
	}

	identity := &dto.Identity{
		UID:      info.Sub,
		Name:     info.Name,
		PhotoURL: info.Picture,
	}
	if info.EmailVerified == "true" {
		identity.Email = info.Email
	}
	return identity, nil
}
