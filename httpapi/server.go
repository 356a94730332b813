package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/internal/logx"
	"pkt.systems/hybridterm/schema"
)

const maxBodyBytes = 1 << 20

// Launcher opens and closes sessions together with their PTY processes and
// forwards submitted commands and raw keystrokes to the PTY.
type Launcher interface {
	Open(ctx context.Context, req schema.OpenSessionRequest) (schema.SessionSnapshot, error)
	Close(ctx context.Context, id schema.SessionID) error
	Submit(ctx context.Context, id schema.SessionID, text string) (schema.SubmitResult, error)
	Input(ctx context.Context, id schema.SessionID, data []byte) error
}

// Server serves the session API and event stream.
type Server struct {
	cfg      Config
	service  core.Service
	launcher Launcher
	hub      *Hub
	basePath string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, service core.Service, launcher Launcher, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(cfg.HubHistory)
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		launcher: launcher,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Hub returns the event hub the server streams from.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleOpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("GET /api/sessions/{id}/blocks", s.handleBlocks)
	mux.HandleFunc("GET /api/sessions/{id}/info", s.handleInfo)
	mux.HandleFunc("GET /api/sessions/{id}/terminal", s.handleTerminal)
	mux.HandleFunc("POST /api/sessions/{id}/submit", s.handleSubmit)
	mux.HandleFunc("POST /api/sessions/{id}/input", s.handleInput)
	mux.HandleFunc("POST /api/sessions/{id}/viewport", s.handleViewport)
	mux.HandleFunc("POST /api/sessions/{id}/mode", s.handleMode)
	mux.HandleFunc("POST /api/sessions/{id}/compose", s.handleCompose)
	mux.HandleFunc("POST /api/sessions/{id}/teammate", s.handleTeammate)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	return mountAt(s.basePath, withRequestLogging(mux, s.service.Session))
}

type openSessionPayload struct {
	ID           schema.SessionID      `json:"id"`
	Mode         schema.RenderMode     `json:"mode"`
	Cols         int                   `json:"cols"`
	Rows         int                   `json:"rows"`
	Conversation schema.ConversationID `json:"conversation"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.service.ListSessions()})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	var payload openSessionPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http open session decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snapshot, err := s.launcher.Open(r.Context(), schema.OpenSessionRequest{
		ID:           payload.ID,
		Mode:         payload.Mode,
		Viewport:     schema.Viewport{Cols: payload.Cols, Rows: payload.Rows},
		Conversation: payload.Conversation,
	})
	if err != nil {
		log.Warn("http open session failed", "err", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": snapshot})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.Session(schema.SessionID(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": snapshot})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	if err := s.launcher.Close(r.Context(), id); err != nil {
		logx.WithSession(r.Context(), id).Warn("http close session failed", "err", err)
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	blocks, err := s.service.Blocks(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit := parseInt(r.URL.Query().Get("limit"), 0); limit > 0 && len(blocks) > limit {
		blocks = blocks[len(blocks)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "blocks": blocks})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	info, err := s.service.SessionInfo(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status, err := s.service.Status(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "status": status, "info": info})
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.Terminal(schema.SessionID(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	var payload struct {
		Data string `json:"data"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.launcher.Input(r.Context(), id, []byte(payload.Data)); err != nil {
		logx.WithSession(r.Context(), id).Debug("http input failed", "err", err)
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	log := logx.WithSession(r.Context(), id)
	var payload struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http submit decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.launcher.Submit(r.Context(), id, payload.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	var payload struct {
		Cols int `json:"cols"`
		Rows int `json:"rows"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.service.SetViewport(r.Context(), id, payload.Cols, payload.Rows); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	var payload struct {
		Mode schema.RenderMode `json:"mode"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.service.SetRenderMode(r.Context(), id, payload.Mode); err != nil {
		writeServiceError(w, err)
		return
	}
	snapshot, err := s.service.Session(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": snapshot})
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	var payload struct {
		State string `json:"state"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var err error
	switch strings.ToLower(strings.TrimSpace(payload.State)) {
	case "start":
		err = s.service.ComposeStart(id)
	case "end":
		err = s.service.ComposeEnd(id)
	default:
		err = fmt.Errorf("%w: state must be start or end", schema.ErrInvalidRequest)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeammate(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	var payload struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	block, err := s.service.PostTeammate(r.Context(), id, payload.Name, payload.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"block": block})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	id := schema.SessionID(strings.TrimSpace(r.URL.Query().Get("session")))
	log := logx.Ctx(r.Context())
	if id != "" {
		if _, err := s.service.Session(id); err != nil {
			writeServiceError(w, err)
			return
		}
		log = logx.WithSession(r.Context(), id)
	}

	ch, unsubscribe, seq := s.hub.Subscribe(id)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	if lastID == 0 {
		lastID = parseUint(r.URL.Query().Get("last_id"))
	}

	snapshot := s.buildSnapshot(id)
	_ = writeSSEvent(w, StreamEvent{
		Type:      StreamSnapshot,
		SessionID: id,
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})

	written := seq
	replayCount := 0
	if lastID > 0 && lastID < seq {
		replay := s.hub.Replay(id, lastID, seq)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, event)
		}
	}
	flusher.Flush()

	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "sessions", len(snapshot.Sessions))
	for {
		select {
		case <-r.Context().Done():
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Seq <= written {
				continue
			}
			written = event.Seq
			if err := writeSSEvent(w, event); err != nil {
				log.Warn("http stream write failed", "err", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) buildSnapshot(id schema.SessionID) SnapshotPayload {
	snapshot := SnapshotPayload{
		Blocks: make(map[schema.SessionID][]schema.Block),
		Info:   make(map[schema.SessionID]schema.SessionInfo),
	}
	if id != "" {
		sess, err := s.service.Session(id)
		if err != nil {
			return snapshot
		}
		snapshot.Sessions = []schema.SessionSnapshot{sess}
	} else {
		snapshot.Sessions = s.service.ListSessions()
	}
	for _, sess := range snapshot.Sessions {
		if blocks, err := s.service.Blocks(sess.ID); err == nil {
			snapshot.Blocks[sess.ID] = blocks
		}
		if info, err := s.service.SessionInfo(sess.ID); err == nil && !info.IsEmpty() {
			snapshot.Info[sess.ID] = info
		}
	}
	return snapshot
}

func decodeJSON(body io.Reader, target any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrSessionExists), errors.Is(err, schema.ErrComposing):
		return http.StatusConflict
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidSession),
		errors.Is(err, schema.ErrEmptyCommand),
		errors.Is(err, schema.ErrInvalidRenderMode),
		errors.Is(err, schema.ErrInvalidViewport):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", event.Seq); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
