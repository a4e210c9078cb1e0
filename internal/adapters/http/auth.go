package httpadapter

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

type userEmailContextKey struct{}

func userEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(userEmailContextKey{}).(string)
	return email
}

// authenticated gates a handler behind bearer-token auth. An unauthenticated
// request is answered with 401 and a login URL carrying the original path;
// no downstream work starts and no backend is contacted.
func (rt *Router) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.authToken == "" {
			next(w, r)
			return
		}

		token := parseBearer(r.Header.Get("Authorization"))
		if token != rt.authToken {
			rt.metrics.RecordAuthRejected(serviceName, r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":     "authentication required",
				"login_url": rt.loginURL + "?next=" + url.QueryEscape(r.URL.RequestURI()),
			})
			return
		}

		// The auth gateway terminates the real login flow and forwards
		// the verified identity in this header.
		if email := strings.TrimSpace(r.Header.Get("X-User-Email")); email != "" {
			r = r.WithContext(context.WithValue(r.Context(), userEmailContextKey{}, email))
		}
		next(w, r)
	})
}

func parseBearer(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
