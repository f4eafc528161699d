package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rental-registry/internal/service"
)

type createNodeRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	ParentID *uint  `json:"parent_id" validate:"omitempty,gt=0"`
}

type updateNodeRequest struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=200"`
	ParentID optionalUint `json:"parent_id"`
}

func (h *Handler) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	node, err := h.service.CreateNode(r.Context(), service.CreateNodeInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

func (h *Handler) handleGetNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}
	options, err := parseGetNodeOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	tree, err := h.service.GetNodeTree(r.Context(), nodeID, options)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tree)
}

// handleUpdateNode renames and/or reparents a node. A body carrying only parent_id is a move.
func (h *Handler) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}

	var req updateNodeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.ParentID.Set && req.ParentID.Value != nil && *req.ParentID.Value == 0 {
		writeError(w, http.StatusBadRequest, "parent_id must be a positive integer", nil)
		return
	}

	var node service.NodeDTO
	if req.Name == nil && req.ParentID.Set {
		node, err = h.service.MoveNode(r.Context(), nodeID, req.ParentID.Value)
	} else {
		node, err = h.service.UpdateNode(r.Context(), nodeID, service.UpdateNodeInput{
			Name:        req.Name,
			ParentIDSet: req.ParentID.Set,
			ParentID:    req.ParentID.Value,
		})
	}
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

func (h *Handler) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}

	if err := h.service.DeleteNode(r.Context(), nodeID); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNodeLevel(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}

	level, err := h.service.Level(r.Context(), nodeID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"node_id": nodeID, "level": level})
}

func (h *Handler) handleNodeRoot(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}

	rootID, err := h.service.Root(r.Context(), nodeID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"node_id": nodeID, "root_id": rootID})
}

func (h *Handler) handleNodeAncestors(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}

	chain, err := h.service.Ancestors(r.Context(), nodeID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"node_id": nodeID, "ancestor_ids": chain[1:]})
}

func (h *Handler) handleNodeDescendants(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}
	includeSelf, err := parseBoolQuery(r, "include_self", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ids, err := h.service.Descendants(r.Context(), nodeID, includeSelf)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"node_id": nodeID, "descendant_ids": ids})
}

// handleNodeAssignments lists every assignment of the node, or only those active on a day
// when active_on (or active=true for today) is given.
func (h *Handler) handleNodeAssignments(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", nil)
		return
	}

	activeToday, err := parseBoolQuery(r, "active", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var assignments []service.AssignmentDTO
	if raw := strings.TrimSpace(r.URL.Query().Get("active_on")); raw != "" {
		on, parseErr := parseDate("active_on", raw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error(), nil)
			return
		}
		assignments, err = h.service.ActiveAssignments(r.Context(), nodeID, &on)
	} else if activeToday {
		assignments, err = h.service.ActiveAssignments(r.Context(), nodeID, nil)
	} else {
		assignments, err = h.service.ListAssignments(r.Context(), nodeID)
	}
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, assignments)
}

func parseGetNodeOptions(r *http.Request) (service.GetNodeOptions, error) {
	query := r.URL.Query()

	depth := 1
	if rawDepth := strings.TrimSpace(query.Get("depth")); rawDepth != "" {
		parsedDepth, err := strconv.Atoi(rawDepth)
		if err != nil {
			return service.GetNodeOptions{}, errors.New("depth must be an integer")
		}
		if parsedDepth < 0 || parsedDepth > 5 {
			return service.GetNodeOptions{}, errors.New("depth must be between 0 and 5")
		}
		depth = parsedDepth
	}

	includeAssignments, err := parseBoolQuery(r, "include_assignments", true)
	if err != nil {
		return service.GetNodeOptions{}, err
	}

	return service.GetNodeOptions{
		Depth:              depth,
		IncludeAssignments: includeAssignments,
	}, nil
}
