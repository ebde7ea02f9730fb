package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/session"
)

// Routes the gate redirects to.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

type userKey struct{}

// UserFrom returns the profile Protect stored on the request context.
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey{}).(models.User)
	return u, ok
}

// Gate routes requests by session state, the way the view router does.
type Gate struct {
	sessions *session.Service
}

func NewGate(sessions *session.Service) *Gate {
	return &Gate{sessions: sessions}
}

// Protect lets signed-in users through with their profile on the context.
// Anonymous page loads are redirected to the login view; other anonymous
// requests get 401.
func (g *Gate) Protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := g.sessions.Snapshot()
		if snap.State == session.Initializing {
			stillLoading(w)
			return
		}
		if snap.User == nil {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}
			respond.Error(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, *snap.User)))
	}
}

// GuestOnly sends signed-in users to the dashboard instead of the login
// and register views.
func (g *Gate) GuestOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := g.sessions.Snapshot()
		if snap.State == session.Initializing {
			stillLoading(w)
			return
		}
		if snap.User != nil {
			http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// Root redirects "/" to the dashboard or the login view.
func (g *Gate) Root(w http.ResponseWriter, r *http.Request) {
	snap := g.sessions.Snapshot()
	if snap.State == session.Initializing {
		stillLoading(w)
		return
	}
	target := LoginPath
	if snap.User != nil {
		target = DashboardPath
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func stillLoading(w http.ResponseWriter) {
	w.Header().Set("Retry-After", strconv.Itoa(1))
	respond.Error(w, http.StatusServiceUnavailable, "session is loading")
}
