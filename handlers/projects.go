package handlers

import (
	"context"
	"net/http"
	"strconv"

	"twintrack/database"
	"twintrack/metrics"
	"twintrack/middleware"
	"twintrack/models"
	"twintrack/roster"
)

type ProjectHandler struct {
	store *database.Store
}

func NewProjectHandler(store *database.Store) *ProjectHandler {
	return &ProjectHandler{store: store}
}

// canManageProject allows admins and the supervisors on the project.
func canManageProject(ctx context.Context, store *database.Store, user *models.User, projectID uint) error {
	if user.IsAdmin() {
		return nil
	}
	if !user.IsSupervisor() {
		return errForbidden
	}
	ok, err := store.IsProjectSupervisor(ctx, projectID, user.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errForbidden
	}
	return nil
}

func recordRosterRejection(err error) {
	if reason := rejectionReason(err); reason != "" {
		metrics.RosterRejections.WithLabelValues(reason).Inc()
	}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newProjectViews(projects), "")
}

// MyProjects lists the projects the caller supervises or works on.
func (h *ProjectHandler) MyProjects(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projects, err := h.store.ProjectsForUser(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newProjectViews(projects), "")
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	in := database.NewProject{Name: req.Name, Code: req.Code, Description: req.Description}
	if req.Status != "" {
		status, err := models.ParseProjectStatus(req.Status)
		if err != nil {
			respondError(w, r, err)
			return
		}
		in.Status = status
	}
	if user := middleware.GetUserFromContext(r.Context()); user.IsSupervisor() {
		in.LeadID = user.ID
	}

	project, err := h.store.CreateProject(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, newProjectView(project), "project created")
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	project, err := h.store.ProjectByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newProjectView(project), "")
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	status, err := models.ParseProjectStatus(req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if err := canManageProject(r.Context(), h.store, user, id); err != nil {
		respondError(w, r, err)
		return
	}

	project, err := h.store.UpdateProjectStatus(r.Context(), id, status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newProjectView(project), "project status updated")
}

// Assignments shows the roster to managers and, read-only, to the workers
// on the project.
func (h *ProjectHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if user := middleware.GetUserFromContext(r.Context()); user.IsWorker() {
		ok, err := h.store.IsProjectWorker(r.Context(), id, user.ID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if !ok {
			respondError(w, r, errForbidden)
			return
		}
	}
	a, err := h.store.Assignments(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newAssignmentsView(a), "")
}

// AssignSupervisor takes supervisorId and level (0 Lead, 1 Assistant,
// 2 Standard) from the query string.
func (h *ProjectHandler) AssignSupervisor(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	supervisorID, err := queryID(r, "supervisorId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	level, err := strconv.Atoi(r.URL.Query().Get("level"))
	if err != nil {
		respondError(w, r, badRequest("invalid level"))
		return
	}
	role, err := roster.ParseLevel(level)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if err := canManageProject(r.Context(), h.store, user, projectID); err != nil {
		respondError(w, r, err)
		return
	}

	if _, err := h.store.AssignSupervisor(r.Context(), projectID, supervisorID, role); err != nil {
		recordRosterRejection(err)
		respondError(w, r, err)
		return
	}
	h.respondAssignments(w, r, projectID, "supervisor assigned as "+string(role))
}

func (h *ProjectHandler) RemoveSupervisor(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	supervisorID, err := pathID(r, "supervisorId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if err := canManageProject(r.Context(), h.store, user, projectID); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.store.RemoveSupervisor(r.Context(), projectID, supervisorID); err != nil {
		recordRosterRejection(err)
		respondError(w, r, err)
		return
	}
	h.respondAssignments(w, r, projectID, "supervisor removed")
}

func (h *ProjectHandler) AssignWorker(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	workerID, err := queryID(r, "workerId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if err := canManageProject(r.Context(), h.store, user, projectID); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.store.AssignWorker(r.Context(), projectID, workerID); err != nil {
		recordRosterRejection(err)
		respondError(w, r, err)
		return
	}
	h.respondAssignments(w, r, projectID, "worker assigned")
}

func (h *ProjectHandler) respondAssignments(w http.ResponseWriter, r *http.Request, projectID uint, message string) {
	a, err := h.store.Assignments(r.Context(), projectID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newAssignmentsView(a), message)
}

func (h *ProjectHandler) Materials(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	materials, err := h.store.ProjectMaterials(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newMaterialViews(materials), "")
}

func (h *ProjectHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	tasks, err := h.store.ProjectTasks(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newTaskViews(tasks), "")
}
