package webservices

import (
	"net"
	"net/http"
)

func isLocalhost(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// LocalhostOnlyMiddleware rejects requests that don't come from the machine the server runs on
func LocalhostOnlyMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !isLocalhost(r.RemoteAddr) {
				http.Error(w, "connections only allowed from the same computer the server is running on", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
