package handlers

import (
	"net/http"

	"github.com/myphotos/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Sessions       SessionManager
	Tokens         middleware.TokenVerifier
	Friends        FriendService
	Photos         PhotoService
	AuthLimiter    RateLimiter
	Metrics        http.Handler
	Health         Pinger
	MaxUploadBytes int64
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.Health}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions}
	friends := FriendHandler{Friends: deps.Friends}
	photos := PhotoHandler{Photos: deps.Photos, MaxUploadBytes: deps.MaxUploadBytes}

	protect := middleware.Authenticate(deps.Tokens)
	authed := func(h http.HandlerFunc) http.Handler { return protect(h) }

	mux.HandleFunc("/healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.HandleFunc("POST /api/v1/auth/signup", limitRequests(deps.AuthLimiter, "auth", auth.SignUp))
	mux.HandleFunc("POST /api/v1/auth/login", limitRequests(deps.AuthLimiter, "auth", auth.Login))
	mux.HandleFunc("POST /api/v1/auth/refresh", limitRequests(deps.AuthLimiter, "auth", auth.Refresh))
	mux.HandleFunc("POST /api/v1/auth/logout", auth.Logout)

	mux.Handle("GET /api/v1/friends", authed(friends.List))
	mux.Handle("POST /api/v1/friends", authed(friends.Request))
	mux.Handle("GET /api/v1/friends/requests/sent", authed(friends.Sent))
	mux.Handle("GET /api/v1/friends/requests/received", authed(friends.Received))
	mux.Handle("DELETE /api/v1/friends/{friendID}", authed(friends.Withdraw))

	mux.Handle("GET /api/v1/photos", authed(photos.ListOwn))
	mux.Handle("POST /api/v1/photos", authed(photos.Upload))
	mux.Handle("GET /api/v1/photos/{ownerID}", authed(photos.ListForOwner))
	mux.Handle("GET /api/v1/photos/{ownerID}/files/{fileName}", authed(photos.Download))
}
