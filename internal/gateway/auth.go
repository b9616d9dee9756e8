package gateway

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/mategen/internal/security"
)

// authenticator checks admin credentials. Secrets are kept as SHA-256
// digests so every comparison runs over 32 bytes whatever the input length.
type authenticator struct {
	token      *[sha256.Size]byte
	user, pass *[sha256.Size]byte
	basicUser  string
	audit      *security.AuditLogger
}

func newAuthenticator(cfg AuthConfig, audit *security.AuditLogger) *authenticator {
	a := &authenticator{audit: audit}
	if cfg.BearerToken != "" {
		a.token = digest(cfg.BearerToken)
	}
	if cfg.BasicUser != "" && cfg.BasicPass != "" {
		a.user, a.pass = digest(cfg.BasicUser), digest(cfg.BasicPass)
		a.basicUser = cfg.BasicUser
	}
	return a
}

func digest(s string) *[sha256.Size]byte {
	d := sha256.Sum256([]byte(s))
	return &d
}

func matches(want *[sha256.Size]byte, got string) bool {
	if want == nil {
		return false
	}
	d := sha256.Sum256([]byte(got))
	return subtle.ConstantTimeCompare(want[:], d[:]) == 1
}

// principal returns who the request authenticates as ("bearer" or
// "basic:<user>"), or a failure reason with ok false.
func (a *authenticator) principal(r *http.Request) (who string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "missing authorization header", false
	}
	if tok, isBearer := strings.CutPrefix(header, "Bearer "); isBearer {
		if matches(a.token, tok) {
			return "bearer", true
		}
		return "invalid bearer token", false
	}
	if user, pass, isBasic := r.BasicAuth(); isBasic {
		// Evaluate both sides so a wrong user costs the same as a wrong password.
		userOK, passOK := matches(a.user, user), matches(a.pass, pass)
		if userOK && passOK {
			return "basic:" + a.basicUser, true
		}
		return "invalid basic credentials", false
	}
	return "unsupported authorization scheme", false
}

// middleware rejects unauthenticated requests with 401 and stores the
// principal on the request context of the rest.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, ok := a.principal(r)
		if !ok {
			a.record(security.EventAuthFailure, r, who)
			w.Header().Set("WWW-Authenticate", `Bearer realm="mategen"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		a.record(security.EventAuthSuccess, r, who)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, who)))
	})
}

func (a *authenticator) record(typ security.EventType, r *http.Request, detail string) {
	a.audit.Log(security.AuditEvent{
		Type:     typ,
		Detail:   detail,
		Metadata: requestMetadata(r),
	})
}

func requestMetadata(r *http.Request) map[string]string {
	return map[string]string{
		"remote_addr": r.RemoteAddr,
		"method":      r.Method,
		"path":        r.URL.Path,
	}
}

type principalKey struct{}

// principalFrom returns the authenticated principal of an admin request.
func principalFrom(ctx context.Context) string {
	who, _ := ctx.Value(principalKey{}).(string)
	return who
}
