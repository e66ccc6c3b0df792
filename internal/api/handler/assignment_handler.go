package handler

import (
	"net/http"
	"studyhub/internal/app/service"
	"studyhub/internal/common"

	"github.com/go-chi/chi/v5"
)

type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	submissionService *service.SubmissionService
	requireAuth       Middleware
}

func NewAssignmentHandler(as *service.AssignmentService, ss *service.SubmissionService, requireAuth Middleware) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: as, submissionService: ss, requireAuth: requireAuth}
}

func (h *AssignmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listAssignments)                // GET /api/v1/assignments?difficulty=&search=
	r.Get("/slug/{slug}", h.getAssignmentBySlug) // GET /api/v1/assignments/slug/algebra-1a2b3c4d
	r.Get("/{assignmentID}", h.getAssignment)    // GET /api/v1/assignments/{id}

	r.Group(func(authed chi.Router) {
		authed.Use(h.requireAuth)
		authed.Post("/", h.createAssignment)
		authed.Put("/{assignmentID}", h.updateAssignment)
		authed.Delete("/{assignmentID}", h.deleteAssignment)
		authed.Post("/{assignmentID}/submissions", h.submit)
	})
}

func (h *AssignmentHandler) listAssignments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	assignments, err := h.assignmentService.List(r.Context(), service.ListAssignmentsRequest{
		Difficulty: query.Get("difficulty"),
		Search:     query.Get("search"),
	})
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, assignments)
}

func (h *AssignmentHandler) getAssignment(w http.ResponseWriter, r *http.Request) {
	assignment, err := h.assignmentService.Get(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, assignment)
}

func (h *AssignmentHandler) getAssignmentBySlug(w http.ResponseWriter, r *http.Request) {
	assignment, err := h.assignmentService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, assignment)
}

func (h *AssignmentHandler) createAssignment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req service.AssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignment, err := h.assignmentService.Create(r.Context(), caller, req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, assignment)
}

func (h *AssignmentHandler) updateAssignment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req service.AssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignment, err := h.assignmentService.Update(r.Context(), caller, chi.URLParam(r, "assignmentID"), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, assignment)
}

func (h *AssignmentHandler) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if err := h.assignmentService.Delete(r.Context(), caller, chi.URLParam(r, "assignmentID")); err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssignmentHandler) submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req service.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.submissionService.Submit(r.Context(), caller, chi.URLParam(r, "assignmentID"), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, submission)
}
