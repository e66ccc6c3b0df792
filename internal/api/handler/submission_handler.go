package handler

import (
	"net/http"
	"studyhub/internal/app/service"
	"studyhub/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	gradingService    *service.GradingService
	requireAuth       Middleware
}

func NewSubmissionHandler(ss *service.SubmissionService, gs *service.GradingService, requireAuth Middleware) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, gradingService: gs, requireAuth: requireAuth}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.requireAuth) // All submission routes require auth
	r.Get("/mine", h.listMine)
	r.Get("/pending", h.listPending)
	r.Get("/{submissionID}", h.getSubmission)
	r.Post("/{submissionID}/grade", h.grade)
}

func (h *SubmissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	views, err := h.submissionService.ListMine(r.Context(), caller)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, views)
}

func (h *SubmissionHandler) listPending(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	views, err := h.submissionService.ListPendingForGrading(r.Context(), caller)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, views)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	submission, err := h.submissionService.Get(r.Context(), caller, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func (h *SubmissionHandler) grade(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req service.GradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.gradingService.Grade(r.Context(), caller, chi.URLParam(r, "submissionID"), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}
