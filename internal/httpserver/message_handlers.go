package httpserver

import (
	"encoding/json"
	"net/http"

	"forumchat/internal/domain"
	"forumchat/internal/hub"
	"forumchat/internal/service"
)

type messageCreateRequest struct {
	Content string `json:"content"`
}

// handleCreateMessage is the REST fallback send path. The created message
// is broadcast on the conversation channel exactly like a socket send, so
// clients deduplicate it by id regardless of which path delivered it first.
func handleCreateMessage(convSvc *service.ConversationService, msgSvc *service.MessageService, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		rec, wire, err := msgSvc.Create(r.Context(), currentUser, convID, req.Content)
		if err != nil {
			writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
			return
		}

		h.BroadcastConversation(convID, 0, domain.ChatMessageFrame{
			Type:    domain.FrameChatMessage,
			Message: *wire,
		})
		if conv, err := convSvc.Get(r.Context(), rec.ConversationID, currentUser.ID); err == nil {
			hub.NotifyConversationUpdated(r.Context(), h, convSvc, conv)
		}

		writeJSON(w, http.StatusCreated, wire)
	}
}

func handleListMessages(msgSvc *service.MessageService, historyLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}

		msgs, err := msgSvc.List(r.Context(), currentUser, convID, historyLimit)
		if err != nil {
			writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
			return
		}
		if msgs == nil {
			msgs = []domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}
