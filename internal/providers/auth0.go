package providers

import (
	"strings"
)

// Auth0 returns the provider for an Auth0 tenant domain such as
// "https://example.eu.auth0.com". A bare host is assumed to be https.
// Auth0 has no access_type parameter, so it is always omitted.
func Auth0(domain string, opts Options) *Provider {
	base := strings.TrimRight(domain, "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}

	p := &Provider{
		Name:        "auth0",
		AuthURL:     base + "/authorize",
		TokenURL:    base + "/oauth/token",
		UserInfoURL: base + "/userinfo",
		NameField:   "name",
	}
	opts.AccessType = ""
	applyOptions(p, opts, []string{"openid", "email", "profile"})
	return p.Normalize()
}
