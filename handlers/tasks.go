package handlers

import (
	"net/http"
	"strings"
	"time"

	"twintrack/database"
	"twintrack/metrics"
	"twintrack/middleware"
	"twintrack/models"
)

type TaskHandler struct {
	store *database.Store
}

func NewTaskHandler(store *database.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

type createTaskRequest struct {
	ProjectID   uint   `json:"projectId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DeadLine    string `json:"deadLine"`
}

// parseDeadline accepts RFC 3339 timestamps and plain dates.
func parseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, badRequest("invalid deadLine " + raw)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	due, err := parseDeadline(req.DeadLine)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if err := canManageProject(r.Context(), h.store, user, req.ProjectID); err != nil {
		respondError(w, r, err)
		return
	}

	task, err := h.store.CreateTask(r.Context(), database.NewTask{
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Description: req.Description,
		DueDate:     due,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, newTaskView(task), "task created")
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.authorizeTask(r, id); err != nil {
		respondError(w, r, err)
		return
	}

	task, err := h.store.UpdateTaskStatus(r.Context(), id, status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newTaskView(task), "task status updated")
}

func (h *TaskHandler) AssignWorker(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	workerID, err := pathID(r, "workerId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.authorizeTask(r, taskID); err != nil {
		respondError(w, r, err)
		return
	}

	task, err := h.store.AssignWorkerToTask(r.Context(), taskID, workerID)
	if err != nil {
		recordRosterRejection(err)
		respondError(w, r, err)
		return
	}
	respondOK(w, newTaskView(task), "worker assigned to task")
}

type materialQuantity struct {
	ID       uint `json:"id"`
	Quantity int  `json:"quantity"`
}

type assignMaterialsRequest struct {
	Materials []materialQuantity `json:"materials"`
}

// AssignMaterials allocates every requested material to the task or none.
func (h *TaskHandler) AssignMaterials(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req assignMaterialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.authorizeTask(r, taskID); err != nil {
		respondError(w, r, err)
		return
	}

	reqs := make([]database.AllocationRequest, 0, len(req.Materials))
	var units int
	for _, m := range req.Materials {
		reqs = append(reqs, database.AllocationRequest{MaterialID: m.ID, Quantity: m.Quantity})
		units += m.Quantity
	}

	allocs, err := h.store.AllocateMaterials(r.Context(), taskID, reqs)
	metrics.Allocations.WithLabelValues(allocationResult(err)).Inc()
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.AllocatedUnits.Add(float64(units))

	out := make([]allocationView, 0, len(allocs))
	for i := range allocs {
		out = append(out, newAllocationView(&allocs[i]))
	}
	respondOK(w, out, "materials assigned")
}

// authorizeTask loads the task and checks the caller may manage its project.
func (h *TaskHandler) authorizeTask(r *http.Request, taskID uint) (*models.Task, error) {
	task, err := h.store.TaskByID(r.Context(), taskID)
	if err != nil {
		return nil, err
	}
	user := middleware.GetUserFromContext(r.Context())
	if err := canManageProject(r.Context(), h.store, user, task.ProjectID); err != nil {
		return nil, err
	}
	return task, nil
}
