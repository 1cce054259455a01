// internal/admin/http.go
package admin

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// NewHandler builds the admin HTTP façade. POST endpoints require the
// X-Admin-Token header iff token is non-empty. The ws parameter, when
// non-nil, is mounted at /ws (the WebSocket bridge to the game protocol).
func NewHandler(logger *log.Logger, ctrl *Controller, token string, ws http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errBody("method not allowed"))
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Status())
	})

	mux.Handle("/kick", adminPost(token, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PlayerID == "" {
			writeJSON(w, http.StatusBadRequest, errBody("player_id required"))
			return
		}
		ok := ctrl.Kick(body.PlayerID)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": ok})
	}))

	mux.Handle("/start", adminPost(token, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Seed string `json:"seed"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body) // empty body is fine
		started, err := ctrl.ForceStart(body.Seed)
		if err != nil {
			writeJSON(w, http.StatusConflict, map[string]interface{}{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": started})
	}))

	mux.Handle("/reset", adminPost(token, func(w http.ResponseWriter, r *http.Request) {
		ctrl.ResetLobby()
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
	}))

	mux.Handle("/config", adminPost(token, func(w http.ResponseWriter, r *http.Request) {
		var patch ConfigPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, errBody("invalid config payload"))
			return
		}
		merged := ctrl.UpdateConfig(patch)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "config": merged})
	}))

	mux.Handle("/lock", adminPost(token, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Locked bool `json:"locked"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errBody("invalid lock payload"))
			return
		}
		ctrl.SetLobbyLock(body.Locked)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "locked": body.Locked})
	}))

	if ws != nil {
		mux.Handle("/ws", ws)
	}

	return logMiddleware(logger)(mux)
}

// adminPost enforces POST plus the admin token.
func adminPost(token string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errBody("method not allowed"))
			return
		}
		if token != "" && r.Header.Get("X-Admin-Token") != token {
			writeJSON(w, http.StatusUnauthorized, errBody("invalid admin token"))
			return
		}
		next(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("admin: failed to encode response: %v", err)
	}
}

func errBody(msg string) map[string]interface{} {
	return map[string]interface{}{"ok": false, "error": msg}
}
