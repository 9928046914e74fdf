package shield

import (
	"net/http"
	"strings"
)

// BodyLimits caps request body sizes by content type.
type BodyLimits struct {
	JSON      int64 // application/json requests
	Form      int64 // application/x-www-form-urlencoded requests
	Multipart int64 // multipart/form-data (document uploads)
}

// DefaultBodyLimits returns the standard caps: 1 MiB for JSON and
// form-encoded payloads, 32 MiB for multipart uploads.
func DefaultBodyLimits() BodyLimits {
	return BodyLimits{
		JSON:      1 << 20,
		Form:      1 << 20,
		Multipart: 32 << 20,
	}
}

// MaxBody returns middleware that limits the request body size by content
// type. JSON and form-encoded requests get their caps, multipart uploads
// the Multipart cap. Other content types are passed through.
func MaxBody(limits BodyLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			switch {
			case strings.HasPrefix(ct, "application/json"):
				r.Body = http.MaxBytesReader(w, r.Body, limits.JSON)
			case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
				r.Body = http.MaxBytesReader(w, r.Body, limits.Form)
			case strings.HasPrefix(ct, "multipart/form-data"):
				r.Body = http.MaxBytesReader(w, r.Body, limits.Multipart)
			}
			next.ServeHTTP(w, r)
		})
	}
}
