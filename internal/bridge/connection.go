package bridge

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/chatbridge/internal/sdk"
)

type environmentRequest struct {
	Name      string `json:"name"`
	ChatURL   string `json:"chatUrl"`
	SocketURL string `json:"socketUrl"`
	BrandID   int    `json:"brandId"`
	ChannelID string `json:"channelId"`
}

func (e environmentRequest) environment() sdk.Environment {
	return sdk.Environment{
		Name:      e.Name,
		ChatURL:   e.ChatURL,
		SocketURL: e.SocketURL,
		BrandID:   e.BrandID,
		ChannelID: e.ChannelID,
	}
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req environmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.Prepare(r.Context(), req.environment()))
}

func (s *Server) handlePrepareWithURLs(w http.ResponseWriter, r *http.Request) {
	var req environmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.PrepareWithURLs(r.Context(), req.ChatURL, req.SocketURL, req.BrandID, req.ChannelID))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.Connect(r.Context()))
}

func (s *Server) handlePrepareAndConnect(w http.ResponseWriter, r *http.Request) {
	var req environmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.PrepareAndConnect(r.Context(), req.environment()))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.Disconnect(r.Context()))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.SignOut(r.Context()))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mode": s.sess.ChatMode()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": s.sess.ChatState()})
}

func (s *Server) handleIsConnected(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"connected": s.sess.IsConnected()})
}

func (s *Server) handleExecuteTrigger(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.ExecuteTrigger(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleChannelConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.sess.ChannelConfiguration(r.Context())
	reply(w, r, cfg, err)
}

func (s *Server) handleChannelConfigurationByURL(w http.ResponseWriter, r *http.Request) {
	var req environmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := s.sess.ChannelConfigurationByURL(r.Context(), req.environment())
	reply(w, r, cfg, err)
}
