// Package net exposes the HTTP surface: join, websocket attach, mode
// switching, diagnostics, and the wire-schema document.
package net

import (
	"encoding/json"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	server "giantgrab/server"
	"giantgrab/server/internal/journal"
	"giantgrab/server/internal/net/proto"
	"giantgrab/server/internal/net/ws"
	"giantgrab/server/internal/state"
	"giantgrab/server/internal/telemetry"
)

// HTTPHandlerConfig carries handler collaborators.
type HTTPHandlerConfig struct {
	Logger telemetry.Logger
}

// NewHTTPHandler builds the route mux over the hub.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	logf := func(format string, args ...any) {
		if logger != nil {
			logger.Printf(format, args...)
		}
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Kind string `json:"kind"`
		}
		if r.Body != nil {
			defer r.Body.Close()
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}

		join, err := hub.Join(req.Kind)
		if err != nil {
			httpError(w, err.Error(), nethttp.StatusBadRequest)
			return
		}

		data, err := proto.EncodeJoinResponseV1(join)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/mode", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req struct {
			ID    string `json:"id"`
			Token string `json:"token"`
			Mode  string `json:"mode"`
		}
		if r.Body == nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}

		mode := state.PlayerMode(req.Mode)
		if mode != state.ModeActive && mode != state.ModeWaiting {
			httpError(w, "unknown mode", nethttp.StatusBadRequest)
			return
		}

		if !hub.SetMode(req.ID, req.Token, mode) {
			httpError(w, "unknown participant", nethttp.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		depth, dropped := hub.JournalDiagnostics()
		payload := struct {
			Status         string                      `json:"status"`
			ServerTime     int64                       `json:"serverTime"`
			Tick           uint64                      `json:"tick"`
			TickRate       int                         `json:"tickRate"`
			Heartbeat      int64                       `json:"heartbeatMillis"`
			Participants   []server.SessionDiagnostics `json:"participants"`
			PendingCmds    int                         `json:"pendingCommands"`
			JournalDepth   int                         `json:"journalDepth"`
			JournalDropped uint64                      `json:"journalDropped"`
			Telemetry      map[string]uint64           `json:"telemetry"`
		}{
			Status:         "ok",
			ServerTime:     time.Now().UnixMilli(),
			Tick:           hub.Tick(),
			TickRate:       hub.TickRate(),
			Heartbeat:      hub.HeartbeatInterval().Milliseconds(),
			Participants:   hub.DiagnosticsSnapshot(),
			PendingCmds:    hub.Loop().Pending(),
			JournalDepth:   depth,
			JournalDropped: dropped,
			Telemetry:      hub.TelemetrySnapshot(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/journal/placements", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				httpError(w, "invalid limit", nethttp.StatusBadRequest)
				return
			}
			limit = parsed
		}

		records, err := hub.RecentPlacements(r.Context(), limit)
		if err != nil {
			logf("failed to read journal: %v", err)
			httpError(w, "journal unavailable", nethttp.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []journal.PlacementRecord{}
		}

		data, err := json.Marshal(struct {
			Placements any `json:"placements"`
		}{Placements: records})
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/schema", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		doc, err := proto.SchemaDocument()
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	wsHandler := ws.NewHandler(hub, logger)

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		participantID := r.URL.Query().Get("id")
		token := r.URL.Query().Get("token")
		if participantID == "" || token == "" {
			httpError(w, "missing credentials", nethttp.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf("upgrade failed for %s: %v", participantID, err)
			return
		}

		sub, ok := hub.Subscribe(participantID, token, conn)
		if !ok {
			message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown participant")
			conn.WriteMessage(websocket.CloseMessage, message)
			conn.Close()
			return
		}

		wsHandler.Serve(participantID, sub, conn)
	})

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
