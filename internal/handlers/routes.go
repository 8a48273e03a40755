package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Comments      CommentStore
	Subscriptions SubscriptionStore
	Toggler       ReactionToggler
	Ingest        MediaIngestor
	AuthLimiter   RateLimiter
	CookieSecure  bool
	UploadDir     string
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter, CookieSecure: deps.CookieSecure}
	users := UserHandler{Users: deps.Users, Subscriptions: deps.Subscriptions}
	videos := VideoHandler{Videos: deps.Videos, Toggler: deps.Toggler, Ingest: deps.Ingest, UploadDir: deps.UploadDir}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Toggler: deps.Toggler}
	subscriptions := SubscriptionHandler{Toggler: deps.Toggler, Subscriptions: deps.Subscriptions}

	protect := middleware.RequireAuth(deps.Sessions)
	protected := func(handler http.HandlerFunc) http.Handler {
		return protect(handler)
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("POST /api/v1/auth/login", auth.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", auth.Refresh)
	mux.Handle("POST /api/v1/auth/logout", protected(auth.Logout))

	mux.Handle("GET /api/v1/users/me", protected(users.Me))
	mux.Handle("GET /api/v1/users/me/likes", protected(users.LikedVideos))
	mux.Handle("GET /api/v1/users/{username}", protected(users.Channel))

	mux.Handle("POST /api/v1/videos", protected(videos.Create))
	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.HandleFunc("GET /api/v1/videos/{id}", videos.Get)
	mux.Handle("DELETE /api/v1/videos/{id}", protected(videos.Delete))
	mux.Handle("POST /api/v1/videos/{id}/reactions", protected(videos.React))
	mux.HandleFunc("GET /api/v1/videos/{id}/comments", comments.ListForVideo)

	mux.Handle("POST /api/v1/comments", protected(comments.Create))
	mux.Handle("DELETE /api/v1/comments/{id}", protected(comments.Delete))
	mux.Handle("POST /api/v1/comments/{id}/reactions", protected(comments.React))

	mux.Handle("POST /api/v1/subscriptions/{channelId}", protected(subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/subscribers", protected(subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/channels", protected(subscriptions.Channels))
}
