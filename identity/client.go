// Package identity talks to the Microsoft identity platform: it builds the
// authorization redirect, redeems codes and refresh tokens, and reads the
// signed-in user's profile from Microsoft Graph.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const (
	DefaultAuthorityURL = "https://login.microsoftonline.com"
	DefaultGraphURL     = "https://graph.microsoft.com/v1.0"

	defaultTimeout       = 10 * time.Second
	defaultTokenLifetime = time.Hour
	maxErrorBody         = 512
)

// Settings describes the application registration and the endpoints to use.
type Settings struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	AuthorityURL string // Defaults to DefaultAuthorityURL
	GraphURL     string // Defaults to DefaultGraphURL
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration // Bounds every provider call
}

// Client is safe for concurrent use once constructed. Discover, when used,
// must complete before the client is shared.
type Client struct {
	settings   Settings
	oauth      *oauth2.Config
	httpClient *http.Client
	logoutURL  string
	nowTime    func() time.Time
}

var _ sessions.Refresher = (*Client)(nil)

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every provider call
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

func New(settings Settings, options ...Option) (*Client, error) {
	if settings.ClientID == "" {
		return nil, errors.New("[identity.New] client id is required")
	}
	if settings.TenantID == "" {
		return nil, errors.New("[identity.New] tenant id is required")
	}
	if settings.RedirectURL == "" {
		return nil, errors.New("[identity.New] redirect url is required")
	}
	if settings.AuthorityURL == "" {
		settings.AuthorityURL = DefaultAuthorityURL
	}
	settings.AuthorityURL = strings.TrimRight(settings.AuthorityURL, "/")
	if settings.GraphURL == "" {
		settings.GraphURL = DefaultGraphURL
	}
	settings.GraphURL = strings.TrimRight(settings.GraphURL, "/")
	if settings.Timeout <= 0 {
		settings.Timeout = defaultTimeout
	}

	c := &Client{
		settings: settings,
		oauth: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint:     endpointFor(settings.AuthorityURL, settings.TenantID),
			RedirectURL:  settings.RedirectURL,
			Scopes:       settings.Scopes,
		},
		httpClient: &http.Client{Timeout: settings.Timeout},
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func endpointFor(authority, tenant string) oauth2.Endpoint {
	var endpoint oauth2.Endpoint
	if authority == DefaultAuthorityURL {
		endpoint = microsoft.AzureADEndpoint(tenant)
	} else {
		endpoint = oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", authority, tenant),
			TokenURL: fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, tenant),
		}
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return endpoint
}

// IssuerURL is the OpenID issuer for the configured tenant.
func (c *Client) IssuerURL() string {
	return fmt.Sprintf("%s/%s/v2.0", c.settings.AuthorityURL, c.settings.TenantID)
}

// Discover loads the provider metadata for issuer and switches the client to
// the advertised authorization, token and end-session endpoints.
func (c *Client) Discover(ctx context.Context, issuer string) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), issuer)
	if err != nil {
		return errors.Wrap(err, "[Client.Discover] loading provider metadata")
	}

	var metadata struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&metadata); err != nil {
		return errors.Wrap(err, "[Client.Discover] decoding provider metadata")
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	c.oauth.Endpoint = endpoint
	c.logoutURL = metadata.EndSessionEndpoint
	return nil
}

// AuthCodeURL builds the provider authorization URL carrying the configured
// scopes, redirect URI and state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode redeems a one-time authorization code.
func (c *Client) ExchangeCode(ctx context.Context, code string) (sessions.Tokens, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return sessions.Tokens{}, errors.Wrap(apperrors.Mark(err, apperrors.ErrAuthExchange), "[Client.ExchangeCode]")
	}
	if token.AccessToken == "" {
		return sessions.Tokens{}, errors.Wrap(apperrors.ErrAuthExchange, "[Client.ExchangeCode] no access token issued")
	}
	return c.tokensFrom(token), nil
}

// RefreshTokens redeems a refresh token for a new token set. When the
// provider does not rotate the refresh token the old one is returned.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (sessions.Tokens, error) {
	if refreshToken == "" {
		return sessions.Tokens{}, apperrors.ErrNoRefreshToken
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	token, err := c.redeemRefreshToken(ctx, refreshToken)
	if err != nil {
		return sessions.Tokens{}, errors.Wrap(apperrors.Mark(err, apperrors.ErrTokenRefresh), "[Client.RefreshTokens]")
	}
	tokens := c.tokensFrom(token)
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// redeemRefreshToken posts a refresh grant carrying the configured scopes to
// the token endpoint. The v2 endpoint requires scope on refresh.
func (c *Client) redeemRefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.oauth.ClientID},
		"scope":         {strings.Join(c.settings.Scopes, " ")},
	}
	if c.oauth.ClientSecret != "" {
		form.Set("client_secret", c.oauth.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauth.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "building refresh request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling token endpoint")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "reading token response")
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, errors.Errorf("token endpoint returned %d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "decoding token response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || tr.Error != "" {
		return nil, errors.Errorf("token endpoint returned %d: %s %s", resp.StatusCode, tr.Error, tr.ErrorDescription)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("no access token issued")
	}

	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		token.Expiry = c.nowTime().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

type graphUser struct {
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

// FetchProfile reads the signed-in user from Graph /me.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (sessions.Profile, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settings.GraphURL+"/me?$select=mail,userPrincipalName,displayName", nil)
	if err != nil {
		return sessions.Profile{}, errors.Wrap(apperrors.Mark(err, apperrors.ErrProfileFetch), "[Client.FetchProfile] building request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sessions.Profile{}, errors.Wrap(apperrors.Mark(err, apperrors.ErrProfileFetch), "[Client.FetchProfile] calling graph")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return sessions.Profile{}, apperrors.Wrapf(apperrors.ErrProfileFetch, "[Client.FetchProfile] graph returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user graphUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return sessions.Profile{}, errors.Wrap(apperrors.Mark(err, apperrors.ErrProfileFetch), "[Client.FetchProfile] decoding profile")
	}

	email := user.Mail
	if email == "" {
		email = user.UserPrincipalName
	}
	if email == "" {
		return sessions.Profile{}, errors.Wrap(apperrors.ErrProfileFetch, "[Client.FetchProfile] profile has no email")
	}
	return sessions.Profile{Email: email, Name: user.DisplayName}, nil
}

// LogoutURL returns the provider sign-out URL that sends the browser back to
// postLogoutRedirect afterwards.
func (c *Client) LogoutURL(postLogoutRedirect string) string {
	base := c.logoutURL
	if base == "" {
		base = fmt.Sprintf("%s/%s/oauth2/v2.0/logout", c.settings.AuthorityURL, c.settings.TenantID)
	}
	return base + "?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirect)
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return context.WithTimeout(ctx, c.settings.Timeout)
}

func (c *Client) tokensFrom(token *oauth2.Token) sessions.Tokens {
	expiresOn := token.Expiry
	if expiresOn.IsZero() {
		expiresOn = expiryFromJWT(token.AccessToken)
	}
	if expiresOn.IsZero() {
		expiresOn = c.nowTime().Add(defaultTokenLifetime)
	}
	return sessions.Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresOn:    expiresOn,
	}
}

// expiryFromJWT reads the exp claim of a JWT access token without verifying
// it. The value is only used to schedule expiry, never to trust the token.
func expiryFromJWT(accessToken string) time.Time {
	if strings.Count(accessToken, ".") != 2 {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
