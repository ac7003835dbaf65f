package httpapi

import (
	"net"
	"net/http"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ivolkov/cartd/internal/model"
)

// identityFromRequest extracts the caller's identity signals. The auth
// subsystem is external: all we consume is "user or none", taken from a
// bearer token. A token that fails verification counts as none. The
// guest token only matters for anonymous callers.
func (s *Server) identityFromRequest(r *http.Request) model.Identity {
	var ident model.Identity
	if uid, ok := s.userIDFromAuthHeader(r); ok {
		ident.UserID = uid
		return ident
	}
	if c, err := r.Cookie(GuestCookieName); err == nil {
		ident.GuestToken = c.Value
	}
	return ident
}

// userIDFromAuthHeader verifies an HS256 bearer token and returns its subject.
func (s *Server) userIDFromAuthHeader(r *http.Request) (uuid.UUID, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, prefix))

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !tok.Valid {
		return uuid.Nil, false
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return uid, true
}

// remoteIP returns the client address without the port.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
