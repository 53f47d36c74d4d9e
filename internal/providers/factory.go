package providers

import (
	"fmt"
	"strings"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
)

// Kinds understood by Build.
const (
	KindGitHub  = "github"
	KindGoogle  = "google"
	KindGitLab  = "gitlab"
	KindAuth0   = "auth0"
	KindGeneric = "generic"
)

// Definition describes a provider declaratively, as it appears in configuration.
type Definition struct {
	// Kind selects the built-in template; empty means Name is used as the kind.
	Kind string
	// Name overrides the template's name (and therefore its routes).
	Name string
	// Domain is the Auth0 tenant domain.
	Domain    string
	Endpoints Endpoints
	Options   Options

	SubjectField string
	NameField    string
	EmailField   string
}

// Build creates a provider from a definition. Endpoints set in the
// definition override the template's.
func Build(def Definition) (*Provider, error) {
	kind := strings.ToLower(def.Kind)
	if kind == "" {
		kind = strings.ToLower(def.Name)
	}

	var p *Provider
	switch kind {
	case KindGitHub:
		p = GitHub(def.Options)
	case KindGoogle:
		p = Google(def.Options)
	case KindGitLab:
		p = GitLab(def.Options)
	case KindAuth0:
		if def.Domain == "" {
			return nil, autherrors.NewInvalidProviderConfig("auth0", "domain is required")
		}
		p = Auth0(def.Domain, def.Options)
	case KindGeneric:
		if def.Name == "" {
			return nil, autherrors.NewInvalidProviderConfig("", "generic providers need a name")
		}
		p = Generic(def.Name, def.Endpoints, def.Options)
	default:
		return nil, autherrors.NewInvalidProviderConfig(def.Name, fmt.Sprintf("unknown provider kind %q", def.Kind))
	}

	if def.Name != "" && !strings.EqualFold(def.Name, p.Name) {
		renamed := p.Name
		p.Name = def.Name
		if def.Options.RequestHandlerPath == "" {
			p.RequestHandlerPath = DefaultRequestHandlerPath(def.Name)
		}
		if def.Options.State == "" && p.State == renamed {
			p.State = def.Name
		}
	}
	if def.Endpoints.AuthURL != "" {
		p.AuthURL = def.Endpoints.AuthURL
	}
	if def.Endpoints.TokenURL != "" {
		p.TokenURL = def.Endpoints.TokenURL
	}
	if def.Endpoints.UserInfoURL != "" {
		p.UserInfoURL = def.Endpoints.UserInfoURL
	}
	if def.SubjectField != "" {
		p.SubjectField = def.SubjectField
	}
	if def.NameField != "" {
		p.NameField = def.NameField
	}
	if def.EmailField != "" {
		p.EmailField = def.EmailField
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
