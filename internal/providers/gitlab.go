package providers

import (
	"golang.org/x/oauth2/endpoints"
)

// GitLabUserInfoURL is the REST endpoint returning the authenticated user on gitlab.com.
const GitLabUserInfoURL = "https://gitlab.com/api/v4/user"

// GitLab returns the gitlab.com provider. Self-managed instances should use
// Generic with their own endpoints.
func GitLab(opts Options) *Provider {
	p := &Provider{
		Name:         "gitlab",
		AuthURL:      endpoints.GitLab.AuthURL,
		TokenURL:     endpoints.GitLab.TokenURL,
		UserInfoURL:  GitLabUserInfoURL,
		SubjectField: "id",
		NameField:    "name",
	}
	applyOptions(p, opts, []string{"read_user"})
	return p.Normalize()
}
