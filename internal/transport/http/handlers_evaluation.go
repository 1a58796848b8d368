package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	evalservice "gradegate/internal/evaluation/service"
	"gradegate/pkg/domain"
	dErrors "gradegate/pkg/domain-errors"
)

func (h *Handler) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req createEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	marking, err := domain.ParseMarking(req.Marking)
	if err != nil {
		writeError(w, err)
		return
	}

	e, err := h.evaluations.Create(r.Context(), evalservice.CreateParams{
		StudentID:  domain.UserID(req.StudentID),
		QuestionID: domain.QuestionID(req.QuestionID),
		TAID:       domain.UserID(req.TAID),
		Marking:    marking,
		Remarks:    req.Remarks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	evals, err := h.evaluations.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evals)
}

func (h *Handler) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEvaluationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		return
	}
	e, err := h.evaluations.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleUpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEvaluationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		return
	}
	var req updateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	params := evalservice.UpdateParams{Remarks: req.Remarks}
	if req.Marking != nil {
		marking, err := domain.ParseMarking(*req.Marking)
		if err != nil {
			writeError(w, err)
			return
		}
		params.Marking = &marking
	}
	if req.TAID != nil {
		taID := domain.UserID(*req.TAID)
		params.TAID = &taID
	}

	e, err := h.evaluations.Update(r.Context(), id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEvaluationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		return
	}
	if err := h.evaluations.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
