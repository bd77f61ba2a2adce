package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cymbal-assist-be/internal/config"
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/pkg/events"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrUnsupportedProvider = errors.New("unsupported provider")

type IOAuthService interface {
	GetLoginURL(provider string) (string, error)
	HandleCallback(ctx context.Context, provider string, code string) (*dto.LoginResponse, error)
}

type oauthService struct {
	googleConf *oauth2.Config
	tokenTTL   time.Duration
	userInfo   string
	analytics  IAnalyticsService
	logger     logger.ILogger
}

func NewOAuthService(cfg config.AuthConfig, analytics IAnalyticsService, log logger.ILogger) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	log.Info("OAUTH", "OAuth service initialized", map[string]interface{}{
		"redirect_url": conf.RedirectURL,
	})

	return &oauthService{
		googleConf: conf,
		tokenTTL:   cfg.TokenTTL,
		userInfo:   googleUserInfoURL,
		analytics:  analytics,
		logger:     log,
	}
}

func (s *oauthService) GetLoginURL(provider string) (string, error) {
	if provider != "google" {
		return "", ErrUnsupportedProvider
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return s.googleConf.AuthCodeURL(base64.URLEncoding.EncodeToString(b)), nil
}

// HandleCallback exchanges the code and issues our own token carrying the
// Google identity. There is no local user table; the Google id is the uid.
func (s *oauthService) HandleCallback(ctx context.Context, provider string, code string) (*dto.LoginResponse, error) {
	if provider != "google" {
		return nil, ErrUnsupportedProvider
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("OAUTH", "Code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	client := s.googleConf.Client(ctx, token)
	resp, err := client.Get(s.userInfo)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info returned %d", resp.StatusCode)
	}

	var googleUser struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(content, &googleUser); err != nil {
		return nil, err
	}
	if googleUser.ID == "" {
		return nil, errors.New("user info has no id")
	}

	identity := serverutils.Identity{
		UID:         googleUser.ID,
		DisplayName: googleUser.Name,
		Email:       googleUser.Email,
		PhotoURL:    googleUser.Picture,
	}
	signed, err := serverutils.IssueToken(identity, s.tokenTTL)
	if err != nil {
		s.logger.Error("OAUTH", "Failed to sign JWT", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.logger.Info("OAUTH", "User authenticated", map[string]interface{}{"uid": identity.UID})
	s.analytics.LogEvent(ctx, events.Login, identity.UID, "", map[string]interface{}{"method": provider})

	return &dto.LoginResponse{AccessToken: signed, User: identity}, nil
}
