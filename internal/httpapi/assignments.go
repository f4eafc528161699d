package httpapi

import (
	"net/http"

	"rental-registry/internal/service"

	"github.com/gorilla/mux"
)

type createHolderRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Kind string `json:"kind" validate:"required"`
}

type createAssignmentRequest struct {
	NodeID    uint    `json:"node_id" validate:"required"`
	HolderID  uint    `json:"holder_id" validate:"required"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type updateAssignmentRequest struct {
	NodeID    *uint        `json:"node_id" validate:"omitempty,gt=0"`
	HolderID  *uint        `json:"holder_id" validate:"omitempty,gt=0"`
	StartDate *string      `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   optionalDate `json:"end_date"`
}

func (h *Handler) handleCreateHolder(w http.ResponseWriter, r *http.Request) {
	var req createHolderRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	holder, err := h.service.CreateHolder(r.Context(), service.CreateHolderInput{
		Name: req.Name,
		Kind: req.Kind,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, holder)
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	endDate, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	created, err := h.service.CreateAssignment(r.Context(), service.CreateAssignmentInput{
		NodeID:    req.NodeID,
		HolderID:  req.HolderID,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignment id", nil)
		return
	}

	found, err := h.service.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) handleGetAssignmentByNumber(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.GetAssignmentByNumber(r.Context(), mux.Vars(r)["number"])
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignment id", nil)
		return
	}

	var req updateAssignmentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	startDate, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	endDate, err := parseOptionalDate("end_date", req.EndDate.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	updated, err := h.service.UpdateAssignment(r.Context(), assignmentID, service.UpdateAssignmentInput{
		NodeID:     req.NodeID,
		HolderID:   req.HolderID,
		StartDate:  startDate,
		EndDateSet: req.EndDate.Set,
		EndDate:    endDate,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignment id", nil)
		return
	}

	if err := h.service.DeleteAssignment(r.Context(), assignmentID); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
