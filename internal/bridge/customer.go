package bridge

import (
	"net/http"
)

type customerRequest struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Token     string `json:"token"`
	Code      string `json:"code"`
	Verifier  string `json:"verifier"`
}

func (s *Server) decodeCustomer(w http.ResponseWriter, r *http.Request) (customerRequest, bool) {
	var req customerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return req, false
	}
	return req, true
}

func (s *Server) handleCustomerName(w http.ResponseWriter, r *http.Request) {
	if req, ok := s.decodeCustomer(w, r); ok {
		reply(w, r, nil, s.sess.SetCustomerName(r.Context(), req.FirstName, req.LastName))
	}
}

func (s *Server) handleCustomerIdentity(w http.ResponseWriter, r *http.Request) {
	if req, ok := s.decodeCustomer(w, r); ok {
		reply(w, r, nil, s.sess.SetCustomerIdentity(r.Context(), req.ID, req.FirstName, req.LastName))
	}
}

func (s *Server) handleClearCustomerIdentity(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.ClearCustomerIdentity(r.Context()))
}

func (s *Server) handleDeviceToken(w http.ResponseWriter, r *http.Request) {
	if req, ok := s.decodeCustomer(w, r); ok {
		reply(w, r, nil, s.sess.SetDeviceToken(r.Context(), req.Token))
	}
}

func (s *Server) handleAuthorizationCode(w http.ResponseWriter, r *http.Request) {
	if req, ok := s.decodeCustomer(w, r); ok {
		reply(w, r, nil, s.sess.SetAuthorizationCode(r.Context(), req.Code))
	}
}

func (s *Server) handleCodeVerifier(w http.ResponseWriter, r *http.Request) {
	if req, ok := s.decodeCustomer(w, r); ok {
		reply(w, r, nil, s.sess.SetCodeVerifier(r.Context(), req.Verifier))
	}
}

func (s *Server) handleVisitorID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"visitorId": s.sess.VisitorID()})
}

func (s *Server) handleCustomerCustomFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.CustomerCustomFields())
}

func (s *Server) handleSetCustomerCustomFields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.SetCustomerCustomFields(r.Context(), req.CustomFields))
}

type pageRequest struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

func (s *Server) handleViewPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.ViewPage(r.Context(), req.Title, req.URL))
}

func (s *Server) handleViewPageEnded(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.ViewPageEnded(r.Context(), req.Title, req.URL))
}

func (s *Server) handleChatWindowOpen(w http.ResponseWriter, r *http.Request) {
	reply(w, r, nil, s.sess.ChatWindowOpen(r.Context()))
}

func (s *Server) handleConversion(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply(w, r, nil, s.sess.Conversion(r.Context(), req.Type, req.Value))
}
