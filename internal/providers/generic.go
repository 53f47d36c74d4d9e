package providers

// Generic returns a provider whose endpoints come entirely from configuration.
func Generic(name string, endpoints Endpoints, opts Options) *Provider {
	p := &Provider{
		Name:        name,
		AuthURL:     endpoints.AuthURL,
		TokenURL:    endpoints.TokenURL,
		UserInfoURL: endpoints.UserInfoURL,
	}
	applyOptions(p, opts, nil)
	return p.Normalize()
}

// applyOptions copies caller options onto p, using defaultScopes when the
// caller supplied none.
func applyOptions(p *Provider, opts Options, defaultScopes []string) {
	p.ClientID = opts.ClientID
	p.ClientSecret = opts.ClientSecret
	p.State = opts.State
	p.AccessType = opts.AccessType
	p.RequestHandlerPath = opts.RequestHandlerPath
	p.HTTPClient = opts.HTTPClient

	if len(opts.Scopes) > 0 {
		p.Scopes = append([]string(nil), opts.Scopes...)
	} else {
		p.Scopes = append([]string(nil), defaultScopes...)
	}
}
