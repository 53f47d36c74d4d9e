// Package ginauth mounts the login flow endpoints and the access token gate
// on a gin router.
package ginauth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lukaszraczylo/authflow/handlers"
	"github.com/lukaszraczylo/authflow/internal/token"
	"github.com/lukaszraczylo/authflow/middleware"
)

const claimsKey = "authflowClaims"

// Mount registers the authorize, callback, refresh, logout and provider
// listing routes on r.
func Mount(r gin.IRouter, h *handlers.AuthHandler) {
	for _, p := range h.ProviderInfos() {
		r.GET(p.AuthorizePath, gin.WrapH(h.Secure(h.Limit(h.AuthorizeHandler(p.Name)))))
	}

	callback := h.Secure(h.Limit(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.HandleCallback(w, req, req.PathValue("provider"))
	})))
	r.GET(ginPath(handlers.CallbackPath), func(c *gin.Context) {
		c.Request.SetPathValue("provider", c.Param("provider"))
		callback.ServeHTTP(c.Writer, c.Request)
	})

	secure := func(fn http.HandlerFunc) gin.HandlerFunc {
		return gin.WrapH(h.Secure(fn))
	}
	for _, path := range []string{handlers.RefreshPath, handlers.LogoutPath, handlers.ProvidersPath} {
		r.OPTIONS(path, secure(h.HandlePreflight))
	}
	r.GET(handlers.RefreshPath, secure(h.HandleRefresh))
	r.POST(handlers.RefreshPath, secure(h.HandleRefresh))
	r.GET(handlers.LogoutPath, secure(h.HandleLogout))
	r.POST(handlers.LogoutPath, secure(h.HandleLogout))
	r.GET(handlers.ProvidersPath, secure(h.HandleProviders))
}

// VerifyAccessToken aborts requests without a valid access token. Claims
// are available through Claims and middleware.ClaimsFromContext.
func VerifyAccessToken(verifier middleware.Verifier, opts middleware.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := middleware.Authenticate(verifier, token.FromRequest(c.Request))
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Debugf("Rejected %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			}
			opts.Metrics.TokenRejected(middleware.RejectionReason(err))
			middleware.SendError(c.Writer, err)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(middleware.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// Claims returns the claims attached by VerifyAccessToken.
func Claims(c *gin.Context) (map[string]any, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(map[string]any)
	return claims, ok
}

// ginPath converts a "{name}" ServeMux pattern into gin's ":name" syntax.
func ginPath(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, s := range segments {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segments[i] = ":" + strings.Trim(s, "{}")
		}
	}
	return strings.Join(segments, "/")
}
