package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"forumchat/internal/domain"
	"forumchat/internal/security"
	"forumchat/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

// makeCheckOrigin accepts browser origins from the allow list and requests
// without an Origin header (non-browser clients such as the CLI).
func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// authenticate resolves the ?token= query credential to a user. The token
// is the only credential the upgrade accepts; the REST session cookie is
// deliberately not honored here.
func authenticate(r *http.Request, tokens *security.TokenService, users domain.UserRepository) (*domain.User, error) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		return nil, domain.ErrUnauthorized
	}
	userID, err := tokens.ParseUserID(tokenStr)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	user, err := users.GetByID(r.Context(), userID)
	if err != nil || user == nil || !user.IsActive {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

// MakeChatHandler serves /ws/chat/{conversationID}/. It authenticates the
// token query credential, checks conversation membership, then dispatches
// inbound frames:
//   - chat_message -> create & broadcast to the conversation channel, plus
//     per-viewer list updates to both participants
//   - typing       -> forward to the other participant's connections
func MakeChatHandler(
	h *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	convSvc *service.ConversationService,
	msgSvc *service.MessageService,
	allowedOrigins []string,
) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: makeCheckOrigin(allowedOrigins)}

	return func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticate(r, tokens, users)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		convID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}
		if _, err := convSvc.Get(r.Context(), convID, user.ID); err != nil {
			http.Error(w, "conversation not found", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		h.RegisterConversation(convID, user.ID, conn)
		defer h.UnregisterConversation(convID, conn)

		// The socket outlives the upgrade request. Any deadline or cancel
		// on the request context must not leak into the read loop, or
		// persistence starts failing once the connection gets old.
		ctx := context.WithoutCancel(r.Context())
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var head struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &head); err != nil {
				sendError(conn, "malformed frame")
				continue
			}

			switch head.Type {
			case domain.FrameChatMessage:
				var in domain.OutboundMessage
				if err := json.Unmarshal(data, &in); err != nil || in.Content == "" {
					sendError(conn, "chat_message requires non-empty content")
					continue
				}
				rec, wire, err := msgSvc.Create(ctx, user, convID, in.Content)
				if err != nil {
					log.Printf("hub: create message: %v", err)
					sendError(conn, "failed to send message")
					continue
				}
				h.BroadcastConversation(convID, 0, domain.ChatMessageFrame{
					Type:    domain.FrameChatMessage,
					Message: *wire,
				})
				updated, err := convSvc.Get(ctx, rec.ConversationID, user.ID)
				if err == nil {
					NotifyConversationUpdated(ctx, h, convSvc, updated)
				}

			case domain.FrameTyping:
				var in domain.OutboundTyping
				if err := json.Unmarshal(data, &in); err != nil {
					sendError(conn, "malformed typing frame")
					continue
				}
				out := domain.TypingFrame{
					Type:     domain.FrameTyping,
					IsTyping: in.IsTyping,
				}
				switch {
				case user.Role == domain.RoleRecruiter && user.CompanyName != "":
					// Counterparts see the company behind a recruiter.
					out.UserName = user.CompanyName
				case user.Name != "":
					out.UserName = user.Name
				default:
					out.UserEmail = user.Email
				}
				h.BroadcastConversation(convID, user.ID, out)

			default:
				log.Printf("hub: unknown frame type %q from user %d", head.Type, user.ID)
			}
		}
	}
}

// MakeListHandler serves /ws/conversations/: the viewer's push channel for
// conversation list updates. Inbound frames are not expected and are
// discarded; the connection exists for server -> client pushes only.
func MakeListHandler(
	h *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	allowedOrigins []string,
) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: makeCheckOrigin(allowedOrigins)}

	return func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticate(r, tokens, users)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		h.RegisterList(user.ID, conn)
		defer h.UnregisterList(user.ID, conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}

// NotifyConversationUpdated pushes a conversation_list_updated frame to
// every participant, each with their own viewer projection.
func NotifyConversationUpdated(ctx context.Context, h *Hub, convSvc *service.ConversationService, conv *domain.ConversationRecord) {
	for _, uid := range conv.ParticipantIDs() {
		summary, err := convSvc.SummaryForUserID(ctx, conv, uid)
		if err != nil {
			log.Printf("hub: summary for user %d: %v", uid, err)
			continue
		}
		h.SendList(uid, domain.ListUpdatedFrame{
			Type:           domain.FrameListUpdated,
			ConversationID: domain.IDFromInt64(conv.ID),
			Conversation:   summary,
		})
	}
}

func sendError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(domain.ErrorFrame{
		Type:    domain.FrameError,
		Message: msg,
	})
}
