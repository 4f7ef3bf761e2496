package api

import (
	"net/http"

	"github.com/user/agentree/internal/manifest"
)

type createAgentRequest struct {
	Title    string            `json:"title"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (h *handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	agent, err := h.ctrl.CreateAgent(r.Context(), r.PathValue("folder"), req.Title, req.Metadata)
	if err != nil {
		status, msg := mapLifecycleError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusCreated, agent)
}

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.mustGetWorktree(w, r); !ok {
		return
	}
	agents, err := h.agents.ListByWorktree(r.Context(), r.PathValue("folder"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, agents)
}

func (h *handler) getAgent(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.mustGetAgent(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, agent)
}

type updateAgentRequest struct {
	Title    *string           `json:"title,omitempty"`
	Status   *string           `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (h *handler) updateAgent(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.mustGetAgent(w, r)
	if !ok {
		return
	}

	var req updateAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			jsonError(w, http.StatusBadRequest, "title cannot be empty")
			return
		}
		agent.Title = *req.Title
	}
	if req.Status != nil {
		switch *req.Status {
		case manifest.AgentStatusIdle, manifest.AgentStatusRunning, manifest.AgentStatusArchived:
			agent.Status = *req.Status
		default:
			jsonError(w, http.StatusBadRequest, "unknown agent status")
			return
		}
	}
	if req.Metadata != nil {
		agent.Metadata = req.Metadata
	}

	if err := h.agents.Update(r.Context(), agent); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, agent)
}

func (h *handler) deleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.DeleteAgent(r.Context(), r.PathValue("id")); err != nil {
		status, msg := mapLifecycleError(err)
		jsonError(w, status, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) mustGetAgent(w http.ResponseWriter, r *http.Request) (*manifest.Agent, bool) {
	agent, err := h.agents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if agent == nil {
		jsonError(w, http.StatusNotFound, "agent not found")
		return nil, false
	}
	return agent, true
}
