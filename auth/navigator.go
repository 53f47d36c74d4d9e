package auth

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/browser"
)

// Navigator performs the full-page navigation to the provider. After a
// successful Navigate, execution continues in whatever context receives the
// provider's redirect, possibly a different process.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return f(ctx, url)
}

// BrowserNavigator opens the URL in the user's default browser.
type BrowserNavigator struct {
	// Quiet discards the browser launcher's output.
	Quiet bool
}

// Navigate opens url with the system browser.
func (b BrowserNavigator) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Quiet {
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
	}
	return browser.OpenURL(url)
}

// RedirectNavigator answers an HTTP request with a 302 to the URL.
type RedirectNavigator struct {
	w http.ResponseWriter
	r *http.Request
}

// NewRedirectNavigator creates a navigator bound to one HTTP exchange.
func NewRedirectNavigator(w http.ResponseWriter, r *http.Request) *RedirectNavigator {
	return &RedirectNavigator{w: w, r: r}
}

// Navigate writes the redirect response.
func (n *RedirectNavigator) Navigate(_ context.Context, url string) error {
	http.Redirect(n.w, n.r, url, http.StatusFound)
	return nil
}
