package api

import (
	"errors"
	"net/http"

	"github.com/user/agentree/internal/lifecycle"
	"github.com/user/agentree/internal/state"
)

type createWorktreeRequest struct {
	RepoURL    string `json:"repo_url"`
	BranchName string `json:"branch_name"`
}

func (h *handler) createWorktree(w http.ResponseWriter, r *http.Request) {
	var req createWorktreeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RepoURL == "" || req.BranchName == "" {
		jsonError(w, http.StatusBadRequest, "repo_url and branch_name are required")
		return
	}

	// Failures are part of the result contract: the UI renders Message and
	// checks Success, so the HTTP status stays 200 either way.
	res := h.ctrl.CreateOrSync(req.RepoURL, req.BranchName)
	jsonResponse(w, http.StatusOK, res)
}

func (h *handler) listWorktrees(w http.ResponseWriter, r *http.Request) {
	worktrees, err := h.state.ListWorktrees()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, worktrees)
}

func (h *handler) getWorktree(w http.ResponseWriter, r *http.Request) {
	worktree, ok := h.mustGetWorktree(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, worktree)
}

func (h *handler) listRepoURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.state.RepoURLs()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, urls)
}

// deleteWorktree runs the deletion with a confirmation bridge: when unpushed
// work needs approval and the request carries no confirm parameter, the
// handler answers 409 with the summary so the UI can re-issue the request
// with confirm=true|false (and delete_branch for force).
func (h *handler) deleteWorktree(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	query := r.URL.Query()

	var pending *lifecycle.ConfirmSummary
	var confirm lifecycle.ConfirmFunc
	switch query.Get("confirm") {
	case "":
		confirm = func(s lifecycle.ConfirmSummary) lifecycle.Decision {
			pending = &s
			return lifecycle.Decision{}
		}
	case "true":
		force := query.Get("delete_branch") == "true"
		confirm = func(lifecycle.ConfirmSummary) lifecycle.Decision {
			return lifecycle.Decision{Proceed: true, ForceDeleteBranch: force}
		}
	default:
		confirm = func(lifecycle.ConfirmSummary) lifecycle.Decision {
			return lifecycle.Decision{}
		}
	}

	res, err := h.ctrl.Delete(folder, confirm)
	if err != nil {
		status, msg := mapLifecycleError(err)
		jsonError(w, status, msg)
		return
	}
	if pending != nil {
		jsonResponse(w, http.StatusConflict, pending)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

type setActiveTabRequest struct {
	TabID string `json:"tab_id"`
}

type activeTabResponse struct {
	TabID string `json:"tab_id"`
}

type setActiveTabResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *handler) getActiveTab(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.mustGetWorktree(w, r); !ok {
		return
	}
	tabID, err := h.tabs.ActiveTab(r.Context(), r.PathValue("folder"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, activeTabResponse{TabID: tabID})
}

func (h *handler) setActiveTab(w http.ResponseWriter, r *http.Request) {
	var req setActiveTabRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TabID == "" {
		jsonError(w, http.StatusBadRequest, "tab_id is required")
		return
	}

	err := h.tabs.SetActiveTab(r.Context(), r.PathValue("folder"), req.TabID)
	switch {
	case err == nil:
		jsonResponse(w, http.StatusOK, setActiveTabResponse{Success: true})
	case errors.Is(err, state.ErrWorktreeNotFound):
		jsonResponse(w, http.StatusNotFound, setActiveTabResponse{Success: false, Error: err.Error()})
	default:
		jsonResponse(w, http.StatusBadRequest, setActiveTabResponse{Success: false, Error: err.Error()})
	}
}

func (h *handler) listTabs(w http.ResponseWriter, r *http.Request) {
	tabList, err := h.tabs.Tabs(r.Context(), r.PathValue("folder"))
	if err != nil {
		if errors.Is(err, state.ErrWorktreeNotFound) {
			jsonError(w, http.StatusNotFound, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, tabList)
}

func (h *handler) mustGetWorktree(w http.ResponseWriter, r *http.Request) (*state.WorktreeEntry, bool) {
	folder := r.PathValue("folder")
	worktree, err := h.state.GetWorktree(folder)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if worktree == nil {
		jsonError(w, http.StatusNotFound, "worktree not found")
		return nil, false
	}
	return worktree, true
}
