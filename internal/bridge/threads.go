package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/chatbridge/internal/codec"
	"github.com/user/chatbridge/internal/session"
	"github.com/user/chatbridge/internal/types"
)

type fieldsRequest struct {
	CustomFields map[string]string `json:"customFields"`
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.sess.Threads(r.Context())
	reply(w, r, threads, err)
}

func (s *Server) handleLoadThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.sess.LoadThreads(r.Context())
	reply(w, r, threads, err)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	thread, err := s.sess.CreateThread(r.Context(), req.CustomFields)
	reply(w, r, thread, err)
}

func (s *Server) handlePreChatSurvey(w http.ResponseWriter, r *http.Request) {
	survey, err := s.sess.PreChatSurvey(r.Context())
	reply(w, r, survey, err)
}

func (s *Server) handleLoadThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.sess.LoadThread(r.Context(), chi.URLParam(r, "id"))
	reply(w, r, thread, err)
}

// messageRequest carries either a full content object or plain text.
type messageRequest struct {
	Text    string          `json:"text"`
	Content json.RawMessage `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req messageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Content) == 0 {
		reply(w, r, nil, s.sess.SendText(r.Context(), id, req.Text))
		return
	}
	content, err := codec.DecodeContent(req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.SendMessage(r.Context(), id, content))
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Batch int `json:"batch"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Batch < 0 {
		writeError(w, r, types.NewInvalidArgument("batch must not be negative", nil))
		return
	}
	thread, err := s.sess.LoadMore(r.Context(), chi.URLParam(r, "id"), req.Batch)
	reply(w, r, thread, err)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.MarkRead(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.UpdateName(r.Context(), chi.URLParam(r, "id"), req.Name))
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.Archive(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleEndContact(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.EndContact(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleTyping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsTyping bool `json:"isTyping"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.ReportTypingStart(r.Context(), chi.URLParam(r, "id"), req.IsTyping))
}

func (s *Server) handleThreadCustomFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.sess.ThreadCustomFields(chi.URLParam(r, "id"))
	reply(w, r, fields, err)
}

func (s *Server) handleUpdateThreadCustomFields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.UpdateThreadCustomFields(r.Context(), chi.URLParam(r, "id"), req.CustomFields))
}

type attachmentRequest struct {
	URL          string `json:"url"`
	Data         string `json:"data"`
	MimeType     string `json:"mimeType"`
	FileName     string `json:"fileName"`
	FriendlyName string `json:"friendlyName"`
}

func (a attachmentRequest) attachment() session.Attachment {
	return session.Attachment{MimeType: a.MimeType, FileName: a.FileName, FriendlyName: a.FriendlyName}
}

func (s *Server) handleAttachmentURL(w http.ResponseWriter, r *http.Request) {
	var req attachmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.SendAttachmentURL(r.Context(), chi.URLParam(r, "id"), req.URL, req.attachment()))
}

func (s *Server) handleAttachmentBase64(w http.ResponseWriter, r *http.Request) {
	var req attachmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.SendAttachmentBase64(r.Context(), chi.URLParam(r, "id"), req.Data, req.attachment()))
}
