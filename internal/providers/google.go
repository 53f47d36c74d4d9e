package providers

import (
	"golang.org/x/oauth2/endpoints"
)

// GoogleUserInfoURL is the OAuth2 v1 user info endpoint.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

// Google returns the Google provider. access_type defaults to online.
func Google(opts Options) *Provider {
	p := &Provider{
		Name:         "google",
		AuthURL:      endpoints.Google.AuthURL,
		TokenURL:     endpoints.Google.TokenURL,
		UserInfoURL:  GoogleUserInfoURL,
		SubjectField: "id",
	}
	if opts.AccessType == "" {
		opts.AccessType = AccessTypeOnline
	}
	applyOptions(p, opts, []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	})
	return p.Normalize()
}
