package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tarely-backend/pkg/config"
	"tarely-backend/pkg/models"
)

// Event is a calendar entry pushed during a sync.
type Event struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// Service syncs tasks to an external Google Calendar.
type Service interface {
	ExchangeCode(ctx context.Context, code string) (*models.CalendarCredentials, error)
	RefreshAccessToken(ctx context.Context, creds *models.CalendarCredentials) (*models.CalendarCredentials, error)
	InsertEvent(ctx context.Context, accessToken string, event Event) error
}

const (
	tokenEndpoint  = "https://oauth2.googleapis.com/token"
	eventsEndpoint = "https://www.googleapis.com/calendar/v3/calendars/primary/events"
)

// GoogleService implements Service against the Google OAuth and Calendar APIs.
type GoogleService struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

func NewGoogleService(cfg *config.Config) *GoogleService {
	return &GoogleService{
		clientID:     cfg.GoogleClientID,
		clientSecret: cfg.GoogleClientSecret,
		redirectURI:  cfg.OAuthRedirectURI,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// ExchangeCode trades an OAuth authorization code for a token pair.
func (g *GoogleService) ExchangeCode(ctx context.Context, code string) (*models.CalendarCredentials, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"redirect_uri":  {g.redirectURI},
		"grant_type":    {"authorization_code"},
	}
	token, err := g.postToken(ctx, form)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("token exchange returned no refresh token")
	}
	return &models.CalendarCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

// RefreshAccessToken obtains a fresh access token using the stored refresh
// token. Google does not rotate refresh tokens, so the old one is kept.
func (g *GoogleService) RefreshAccessToken(ctx context.Context, creds *models.CalendarCredentials) (*models.CalendarCredentials, error) {
	form := url.Values{
		"refresh_token": {creds.RefreshToken},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"grant_type":    {"refresh_token"},
	}
	token, err := g.postToken(ctx, form)
	if err != nil {
		return nil, err
	}
	return &models.CalendarCredentials{
		UserID:       creds.UserID,
		AccessToken:  token.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

func (g *GoogleService) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || token.Error != "" {
		return nil, fmt.Errorf("token endpoint returned %d: %s %s", resp.StatusCode, token.Error, token.ErrorDesc)
	}
	return &token, nil
}

// InsertEvent creates an event on the user's primary calendar.
func (g *GoogleService) InsertEvent(ctx context.Context, accessToken string, event Event) error {
	payload, err := json.Marshal(map[string]interface{}{
		"summary":     event.Title,
		"description": event.Description,
		"start":       map[string]string{"dateTime": event.Start.Format(time.RFC3339)},
		"end":         map[string]string{"dateTime": event.End.Format(time.RFC3339)},
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eventsEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build event request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("event request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("event insert returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
