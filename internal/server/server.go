package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pfcuttle/cuttle/internal/auth"
	"github.com/pfcuttle/cuttle/internal/models"
)

// Server exposes the websocket endpoint and the few HTTP helpers around it.
type Server struct {
	hub      *Hub
	verifier *auth.Verifier
}

func New(hub *Hub, verifier *auth.Verifier) *Server {
	return &Server{hub: hub, verifier: verifier}
}

// Routes registers the handlers on a mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/game/create", s.handleCreateGame)
	mux.HandleFunc("/auth/guest", s.handleGuest)
}

// identify extracts the caller's identity from the token query parameter or
// the Authorization header.
func (s *Server) identify(r *http.Request) (*models.User, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h := r.Header.Get("Authorization")
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return s.verifier.Verify(token)
}

// handleWS upgrades the connection and runs the read/write loops until the
// socket drops.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	user, err := s.identify(r)
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		logrus.Warn("websocket accept failed: ", err)
		return
	}
	c := newClient(s.hub, conn, user)
	logrus.WithField("user_id", user.ID).Info("websocket connected")

	go c.writePump(r.Context())
	c.readLoop(r.Context())
}

// handleCreateGame makes a new waiting game and returns its id. The caller
// joins it over the websocket.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.identify(r); err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}
	sess := s.hub.manager.CreateGame()
	writeJSON(w, map[string]uuid.UUID{"gameId": sess.ID})
}

// handleGuest issues a throwaway identity so spectators need no account.
func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Username string `json:"username"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Username == "" {
		body.Username = "guest"
	}
	u := &models.User{ID: uuid.New(), Username: body.Username}
	token, err := s.verifier.CreateToken(u)
	if err != nil {
		http.Error(w, "token issue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"token": token, "userId": u.ID.String()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warn("response encode failed: ", err)
	}
}
