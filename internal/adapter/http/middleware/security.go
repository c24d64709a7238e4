package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders sets the standard API security headers.
func SecureHeaders(production bool) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            31536000,
		IsDevelopment:         !production,
	})
	return s.Handler
}
