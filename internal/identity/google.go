package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terralink/portal/internal/config"
	"go.uber.org/zap"
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

type googleVerifier struct {
	clientID string
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// NewGoogleVerifier verifies Google ID tokens against the tokeninfo
// endpoint and enforces the configured OAuth client id as audience.
func NewGoogleVerifier(cfg config.Config, log *zap.Logger) Verifier {
	return &googleVerifier{
		clientID: cfg.GoogleClientID,
		endpoint: tokenInfoURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.Named("identity.google"),
	}
}

type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (v *googleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrInvalidCredential
	}

	form := url.Values{"id_token": {credential}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Google answers 400 for malformed or expired tokens.
		v.log.Debug("credential rejected", zap.Int("status", resp.StatusCode))
		return nil, ErrInvalidCredential
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if v.clientID != "" && info.Aud != v.clientID {
		v.log.Warn("audience mismatch")
		return nil, ErrInvalidCredential
	}
	if info.Sub == "" || info.Email == "" {
		return nil, ErrInvalidCredential
	}

	return &Identity{
		SubjectID:     info.Sub,
		Email:         strings.ToLower(info.Email),
		Name:          info.Name,
		Picture:       info.Picture,
		EmailVerified: info.EmailVerified == "true",
	}, nil
}
