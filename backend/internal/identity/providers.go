package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

const userInfoTimeout = 10 * time.Second

// UserInfoClient exchanges a provider access token for the provider's profile
type UserInfoClient struct {
	endpoints map[string]string
	http      *http.Client
}

// NewUserInfoClient creates a client for the given provider -> endpoint map
func NewUserInfoClient(endpoints map[string]string) *UserInfoClient {
	return &UserInfoClient{
		endpoints: endpoints,
		http: &http.Client{
			Timeout:   userInfoTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

type facebookUserInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Fetch returns the typed identity for accessToken. An unknown provider, a
// rejected token or a profile without an id is an authentication failure.
func (c *UserInfoClient) Fetch(ctx context.Context, provider, accessToken string) (domain.ProviderIdentity, error) {
	endpoint, ok := c.endpoints[provider]
	if !ok {
		return domain.ProviderIdentity{}, apperrors.NewUnauthenticated("unsupported provider "+provider, nil)
	}
	if accessToken == "" {
		return domain.ProviderIdentity{}, apperrors.NewUnauthenticated("missing access token", nil)
	}

	var pi domain.ProviderIdentity
	switch provider {
	case domain.ProviderFacebook:
		var info facebookUserInfo
		u, err := url.Parse(endpoint)
		if err != nil {
			return pi, apperrors.NewInvalid("userinfo url", err.Error())
		}
		q := u.Query()
		q.Set("fields", "id,name,email,picture")
		q.Set("access_token", accessToken)
		u.RawQuery = q.Encode()
		if err := c.get(ctx, u.String(), "", &info); err != nil {
			return pi, err
		}
		pi = domain.ProviderIdentity{
			Provider:   provider,
			ProviderID: info.ID,
			Name:       info.Name,
			Email:      info.Email,
			Picture:    info.Picture.Data.URL,
		}
	default:
		var info googleUserInfo
		if err := c.get(ctx, endpoint, accessToken, &info); err != nil {
			return pi, err
		}
		pi = domain.ProviderIdentity{
			Provider:   provider,
			ProviderID: info.Sub,
			Name:       info.Name,
			Picture:    info.Picture,
		}
		// An unverified address must never link this login to another user
		if info.EmailVerified {
			pi.Email = info.Email
		}
	}

	if pi.ProviderID == "" {
		return domain.ProviderIdentity{}, apperrors.NewUnauthenticated("provider returned no stable identifier", nil)
	}
	return pi, nil
}

func (c *UserInfoClient) get(ctx context.Context, endpoint, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewInvalid("userinfo request", err.Error())
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewUnauthenticated("userinfo request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewUnauthenticated(fmt.Sprintf("userinfo returned %d", resp.StatusCode), fmt.Errorf("%s", body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewUnauthenticated("decode userinfo", err)
	}
	return nil
}
