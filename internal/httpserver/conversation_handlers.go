package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"forumchat/internal/domain"
	"forumchat/internal/hub"
	"forumchat/internal/service"
)

type conversationCreateRequest struct {
	ForumID     domain.ID `json:"forum_id"`
	RecruiterID domain.ID `json:"recruiter_id"`
}

func handleCreateConversation(convSvc *service.ConversationService, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req conversationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		rec, err := convSvc.Create(r.Context(), currentUser, req.ForumID.Int64(), req.RecruiterID.Int64())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		summary, err := convSvc.Summary(r.Context(), rec, currentUser)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		// The recruiter side learns about the new conversation by push.
		hub.NotifyConversationUpdated(r.Context(), h, convSvc, rec)
		writeJSON(w, http.StatusCreated, summary)
	}
}

func handleListConversations(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convs, err := convSvc.ListForViewer(r.Context(), currentUser)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if convs == nil {
			convs = []domain.Conversation{}
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

func handleGetConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		id, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		rec, err := convSvc.Get(r.Context(), id, currentUser.ID)
		if err != nil {
			writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
			return
		}
		summary, err := convSvc.Summary(r.Context(), rec, currentUser)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

type statusUpdateRequest struct {
	Status domain.ConversationStatus `json:"status"`
}

func handleUpdateConversationStatus(convSvc *service.ConversationService, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		id, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		var req statusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		rec, err := convSvc.UpdateStatus(r.Context(), currentUser, id, req.Status)
		if err != nil {
			writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
			return
		}

		summary, err := convSvc.Summary(r.Context(), rec, currentUser)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		hub.NotifyConversationUpdated(r.Context(), h, convSvc, rec)
		writeJSON(w, http.StatusOK, summary)
	}
}

func handleMarkConversationRead(convSvc *service.ConversationService, msgSvc *service.MessageService, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		id, err := conversationID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		if err := msgSvc.MarkAllRead(r.Context(), currentUser, id); err != nil {
			writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
			return
		}

		if rec, err := convSvc.Get(r.Context(), id, currentUser.ID); err == nil {
			hub.NotifyConversationUpdated(r.Context(), h, convSvc, rec)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func conversationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
