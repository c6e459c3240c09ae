package config

import "time"

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetTenantID() string
	GetAuthorityURL() string
	GetOIDCDiscovery() bool
	GetRedirectURI() string
	GetFrontendOrigin() string
	GetScopes() []string
	GetGraphURL() string
	GetIdentityTimeout() time.Duration
}

// OAuth holds the Microsoft Entra application registration. Redirect URI and
// front-end origin come in pairs and the environment picks one of each.
type OAuth struct {
	ClientID            string        `env:"MICROSOFT_CLIENT_ID"`
	ClientSecret        string        `env:"MICROSOFT_CLIENT_SECRET"`
	TenantID            string        `env:"MICROSOFT_TENANT_ID" env-default:"common"`
	AuthorityURL        string        `env:"OAUTH_AUTHORITY_URL" env-default:"https://login.microsoftonline.com"`
	OIDCDiscovery       bool          `env:"OIDC_DISCOVERY" env-default:"false"`
	RedirectURIProd     string        `env:"OAUTH_REDIRECT_URI_PROD"`
	RedirectURILocal    string        `env:"OAUTH_REDIRECT_URI_LOCAL" env-default:"http://localhost:3000/auth/callback"`
	FrontendOriginProd  string        `env:"FRONTEND_ORIGIN_PROD"`
	FrontendOriginLocal string        `env:"FRONTEND_ORIGIN_LOCAL" env-default:"http://localhost:5173"`
	Scopes              []string      `env:"OAUTH_SCOPES" env-separator:" " env-default:"openid profile email offline_access User.Read Mail.Send"`
	GraphURL            string        `env:"GRAPH_URL" env-default:"https://graph.microsoft.com/v1.0"`
	IdentityTimeout     time.Duration `env:"IDP_TIMEOUT" env-default:"10s"`

	production bool
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetClientSecret() string {
	return o.ClientSecret
}

func (o OAuth) GetTenantID() string {
	return o.TenantID
}

func (o OAuth) GetAuthorityURL() string {
	return o.AuthorityURL
}

func (o OAuth) GetOIDCDiscovery() bool {
	return o.OIDCDiscovery
}

func (o OAuth) GetRedirectURI() string {
	if o.production {
		return o.RedirectURIProd
	}
	return o.RedirectURILocal
}

func (o OAuth) GetFrontendOrigin() string {
	if o.production {
		return o.FrontendOriginProd
	}
	return o.FrontendOriginLocal
}

func (o OAuth) GetScopes() []string {
	return o.Scopes
}

func (o OAuth) GetGraphURL() string {
	return o.GraphURL
}

func (o OAuth) GetIdentityTimeout() time.Duration {
	return o.IdentityTimeout
}
