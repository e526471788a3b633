package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ludoroyale/game-server/auth"
	"github.com/ludoroyale/game-server/game/config"
	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
	"github.com/ludoroyale/game-server/game/service"
	"github.com/ludoroyale/game-server/game/session"
	"github.com/ludoroyale/game-server/transport/websocket"
)

// Server represents the REST API server.
type Server struct {
	service  service.GameService
	hub      *websocket.Hub
	verifier auth.Verifier
	router   *mux.Router
}

// NewServer creates a new API server.
func NewServer(gameService service.GameService, hub *websocket.Hub, verifier auth.Verifier) *Server {
	s := &Server{
		service:  gameService,
		hub:      hub,
		verifier: verifier,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Room management
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleDeleteRoom).Methods("DELETE")

	// Lobby actions (authenticated)
	api.HandleFunc("/rooms/{id}/join", s.handleJoin).Methods("POST")
	api.HandleFunc("/rooms/{id}/leave", s.handleLeave).Methods("POST")
	api.HandleFunc("/rooms/{id}/ready", s.handleReady).Methods("POST")
	api.HandleFunc("/rooms/{id}/forfeit", s.handleForfeit).Methods("POST")

	// Game state
	api.HandleFunc("/rooms/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/rooms/{id}/history", s.handleGetHistory).Methods("GET")

	// Rules
	api.HandleFunc("/variants", s.handleListVariants).Methods("GET")
	api.HandleFunc("/rulesets", s.handleListRulesets).Methods("GET")
	api.HandleFunc("/rulesets", s.handleCreateRuleset).Methods("POST")

	// WebSocket gateway
	if s.hub != nil {
		s.router.Handle("/ws", s.hub)
	}

	// Health check
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondOutcome maps an action outcome to a status code: accepted actions
// are 200, rejections 409 with the reason code.
func respondOutcome(w http.ResponseWriter, out engine.Outcome) {
	if !out.OK {
		respondJSON(w, http.StatusConflict, map[string]string{"error": string(out.Reason)})
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// identity authenticates the request or writes a 401.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, err := s.verifier.Verify(auth.BearerToken(r))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	return identity, true
}

func notFoundStatus(err error) int {
	if errors.Is(err, session.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Room Handlers

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRoomRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	room, err := s.service.CreateRoom(r.Context(), req)
	if err != nil {
		if errors.Is(err, config.ErrRulesetNotFound) || errors.Is(err, rules.ErrUnknownVariant) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, room)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	if status := query.Get("status"); status != "" {
		filtered := rooms[:0]
		for _, room := range rooms {
			if string(room.Status) == status {
				filtered = append(filtered, room)
			}
		}
		rooms = filtered
	}

	// Newest first by default.
	order := query.Get("order")
	sort.Slice(rooms, func(i, j int) bool {
		if order == "asc" {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	limit := len(rooms)
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(rooms) {
			limit = l
		}
	}
	rooms = rooms[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	room, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	if err := s.service.DeleteRoom(r.Context(), roomID); err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "room " + roomID + " deleted",
	})
}

// Lobby Handlers

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	roomID := mux.Vars(r)["id"]

	var req struct {
		Name string `json:"name,omitempty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	name := req.Name
	if name == "" {
		name = identity.Name
	}

	out, err := s.service.Join(r.Context(), roomID, identity.PlayerID, name)
	if err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	roomID := mux.Vars(r)["id"]

	out, err := s.service.Leave(r.Context(), roomID, identity.PlayerID)
	if err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	roomID := mux.Vars(r)["id"]

	var req struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.service.SetReady(r.Context(), roomID, identity.PlayerID, req.Ready)
	if err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleForfeit(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	roomID := mux.Vars(r)["id"]

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	out, err := s.service.Forfeit(r.Context(), roomID, identity.PlayerID, req.Reason)
	if err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}
	respondOutcome(w, out)
}

// State Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	state, err := s.service.GetState(r.Context(), roomID)
	if err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), roomID, opts)
	if err != nil {
		respondError(w, notFoundStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Rules Handlers

func (s *Server) handleListVariants(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.ListVariants(r.Context()))
}

func (s *Server) handleListRulesets(w http.ResponseWriter, r *http.Request) {
	rulesets, err := s.service.ListRulesets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rulesets == nil {
		rulesets = []*config.RulesetInfo{}
	}
	respondJSON(w, http.StatusOK, rulesets)
}

func (s *Server) handleCreateRuleset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		rules.Config
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "ruleset name is required")
		return
	}

	if err := s.service.SaveRuleset(r.Context(), req.Name, &req.Config); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message":    "ruleset saved",
		"ruleset_id": req.Name,
	})
}

// Health check

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
