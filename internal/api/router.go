package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/user/agentree/internal/lifecycle"
	"github.com/user/agentree/internal/manifest"
	"github.com/user/agentree/internal/state"
	"github.com/user/agentree/internal/tabs"
	"github.com/user/agentree/internal/trace"
)

type handler struct {
	ctrl     *lifecycle.Controller
	state    *state.Store
	agents   *manifest.AgentRepo
	sessions *manifest.SessionMapRepo
	tabs     *tabs.Coordinator
	traces   *trace.Store
}

func NewRouter(ctrl *lifecycle.Controller, st *state.Store, agents *manifest.AgentRepo, sessions *manifest.SessionMapRepo, tabCoord *tabs.Coordinator, traces *trace.Store, token string) http.Handler {
	handler := &handler{
		ctrl:     ctrl,
		state:    st,
		agents:   agents,
		sessions: sessions,
		tabs:     tabCoord,
		traces:   traces,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/worktrees", handler.createWorktree)
	mux.HandleFunc("GET /api/worktrees", handler.listWorktrees)
	mux.HandleFunc("GET /api/worktrees/repo-urls", handler.listRepoURLs)
	mux.HandleFunc("GET /api/worktrees/{folder}", handler.getWorktree)
	mux.HandleFunc("DELETE /api/worktrees/{folder}", handler.deleteWorktree)

	mux.HandleFunc("GET /api/worktrees/{folder}/tabs", handler.listTabs)
	mux.HandleFunc("GET /api/worktrees/{folder}/active-tab", handler.getActiveTab)
	mux.HandleFunc("PUT /api/worktrees/{folder}/active-tab", handler.setActiveTab)

	mux.HandleFunc("POST /api/worktrees/{folder}/agents", handler.createAgent)
	mux.HandleFunc("GET /api/worktrees/{folder}/agents", handler.listAgents)
	mux.HandleFunc("GET /api/agents/{id}", handler.getAgent)
	mux.HandleFunc("PATCH /api/agents/{id}", handler.updateAgent)
	mux.HandleFunc("DELETE /api/agents/{id}", handler.deleteAgent)

	mux.HandleFunc("GET /api/worktrees/{folder}/agents/{agentID}/session", handler.getSessionMapping)
	mux.HandleFunc("PUT /api/worktrees/{folder}/agents/{agentID}/session", handler.updateSessionMapping)
	mux.HandleFunc("GET /api/worktrees/{folder}/agents/{agentID}/directories", handler.getAdditionalDirectories)
	mux.HandleFunc("PUT /api/worktrees/{folder}/agents/{agentID}/directories", handler.updateAdditionalDirectories)

	return authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			jsonError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// mapLifecycleError translates controller errors to HTTP statuses the same
// way for every handler.
func mapLifecycleError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	switch {
	case lifecycle.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case lifecycle.IsCapacity(err):
		return http.StatusConflict, err.Error()
	case lifecycle.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
