package providers

import (
	"golang.org/x/oauth2/endpoints"
)

// GitHubUserInfoURL is the REST endpoint returning the authenticated user.
const GitHubUserInfoURL = "https://api.github.com/user"

// GitHub returns the GitHub provider. GitHub is OAuth 2.0 only: there is no
// id_token, the user document comes from the REST API and uses "id"/"login".
func GitHub(opts Options) *Provider {
	p := &Provider{
		Name:         "github",
		AuthURL:      endpoints.GitHub.AuthURL,
		TokenURL:     endpoints.GitHub.TokenURL,
		UserInfoURL:  GitHubUserInfoURL,
		SubjectField: "id",
		NameField:    "name",
		EmailField:   "email",
	}
	applyOptions(p, opts, []string{"read:user", "user:email"})
	return p.Normalize()
}
