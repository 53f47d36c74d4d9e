package auth

import (
	"net/url"
	"strings"
)

// callbackParams are the values a provider sends back on the redirect.
type callbackParams struct {
	Code             string
	State            string
	AccessToken      string
	Error            string
	ErrorDescription string
}

// extractCallbackParams reads the redirect parameters. Providers that answer
// after '#' are supported: the fragment takes precedence over the query.
func extractCallbackParams(u *url.URL) callbackParams {
	if u == nil {
		return callbackParams{}
	}

	query := u.Query()
	fragment, _ := url.ParseQuery(strings.TrimPrefix(u.Fragment, "#"))

	get := func(key string) string {
		if v := fragment.Get(key); v != "" {
			return v
		}
		return query.Get(key)
	}

	return callbackParams{
		Code:             get("code"),
		State:            get("state"),
		AccessToken:      get("access_token"),
		Error:            get("error"),
		ErrorDescription: get("error_description"),
	}
}
