package api

import (
	"log/slog"
	"net/http"
)

type sessionMappingResponse struct {
	SessionID string `json:"session_id"`
}

type updateSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (h *handler) getSessionMapping(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	agentID := r.PathValue("agentID")

	sessionID, err := h.sessions.GetSession(r.Context(), folder, agentID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, sessionMappingResponse{SessionID: sessionID})
}

func (h *handler) updateSessionMapping(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	agentID := r.PathValue("agentID")

	var req updateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		jsonError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.sessions.UpdateSession(r.Context(), folder, agentID, req.SessionID); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Trace the mapping change so the session log carries its own origin.
	// Log append failures never fail the request.
	if err := h.traces.Append(folder, req.SessionID, "session-established", map[string]string{
		"agent_id": agentID,
	}); err != nil {
		slog.Warn("failed to append session trace", "folder", folder, "session", req.SessionID, "error", err)
	}

	jsonResponse(w, http.StatusOK, sessionMappingResponse{SessionID: req.SessionID})
}

type directoriesResponse struct {
	Directories []string `json:"directories"`
}

type updateDirectoriesRequest struct {
	Directories []string `json:"directories"`
}

func (h *handler) getAdditionalDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := h.sessions.GetAdditionalDirectories(r.Context(), r.PathValue("folder"), r.PathValue("agentID"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, directoriesResponse{Directories: dirs})
}

func (h *handler) updateAdditionalDirectories(w http.ResponseWriter, r *http.Request) {
	var req updateDirectoriesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	folder := r.PathValue("folder")
	agentID := r.PathValue("agentID")
	if err := h.sessions.UpdateAdditionalDirectories(r.Context(), folder, agentID, req.Directories); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dirs, err := h.sessions.GetAdditionalDirectories(r.Context(), folder, agentID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, directoriesResponse{Directories: dirs})
}
