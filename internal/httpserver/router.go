package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"forumchat/internal/config"
	"forumchat/internal/hub"
	"forumchat/internal/security"
	"forumchat/internal/service"
	"forumchat/internal/store/sqlite"
)

// NewRouter constructs the reference backend router: the REST API consumed
// by the chat client's REST façade, the websocket-token endpoint, and the
// two WebSocket channel endpoints.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	h *hub.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	encryptor *security.Encryptor,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, passwordHasher)
	convSvc := service.NewConversationService(convRepo, msgRepo, userRepo, encryptor)
	msgSvc := service.NewMessageService(convRepo, msgRepo, userRepo, encryptor)

	sessions := NewSessionStore()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// API routes. The request timeout stays off the WebSocket endpoints
	// below: their connections outlive any sane deadline.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc, sessions))
			r.Post("/login", handleLogin(authSvc, sessions))
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(sessions, userRepo))

			r.Post("/auth/logout", handleLogout(sessions))
			r.Get("/auth/me", handleMe())

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", handleCreateConversation(convSvc, h))
				r.Get("/", handleListConversations(convSvc))
				r.Get("/{conversationID}/", handleGetConversation(convSvc))
				r.Patch("/{conversationID}/status/", handleUpdateConversationStatus(convSvc, h))
				r.Post("/{conversationID}/read/", handleMarkConversationRead(convSvc, msgSvc, h))
				r.Get("/{conversationID}/messages/", handleListMessages(msgSvc, cfg.MessageHistoryLimit))
				r.Post("/{conversationID}/messages/", handleCreateMessage(convSvc, msgSvc, h))
			})
		})
	})

	// The websocket token rides the session cookie like every REST call;
	// the socket endpoints below accept only the token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(AuthMiddleware(sessions, userRepo))
		r.Get("/notifications/websocket-token/", handleWebSocketToken(tokenSvc))
	})

	// WebSocket channels
	r.Get("/ws/chat/{conversationID}/", hub.MakeChatHandler(h, tokenSvc, userRepo, convSvc, msgSvc, cfg.CORSOrigins))
	r.Get("/ws/conversations/", hub.MakeListHandler(h, tokenSvc, userRepo, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
