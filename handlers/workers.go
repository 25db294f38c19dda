package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"twintrack/database"
	"twintrack/metrics"
	"twintrack/middleware"
	"twintrack/models"
)

type WorkerHandler struct {
	store *database.Store
}

func NewWorkerHandler(store *database.Store) *WorkerHandler {
	return &WorkerHandler{store: store}
}

func (h *WorkerHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}

	users, total, err := h.store.UsersByRole(r.Context(), models.RoleWorker, page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	items := make([]userView, 0, len(users))
	for i := range users {
		items = append(items, newUserView(&users[i]))
	}
	respondOK(w, Page[userView]{Items: items, Total: total, Page: page, PageSize: pageSize}, "")
}

type assignedWorkerTasks struct {
	userView
	Tasks []database.WorkerTask `json:"tasks"`
}

// Assigned lists workers that hold at least one task, with those tasks.
func (h *WorkerHandler) Assigned(w http.ResponseWriter, r *http.Request) {
	var (
		workers []models.User
		pairs   []database.WorkerTask
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		workers, _, err = h.store.UsersByRole(ctx, models.RoleWorker, 1, 500)
		return err
	})
	g.Go(func() error {
		var err error
		pairs, err = h.store.WorkerTaskPairs(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(w, r, err)
		return
	}

	byWorker := make(map[uint][]database.WorkerTask)
	for _, p := range pairs {
		byWorker[p.WorkerID] = append(byWorker[p.WorkerID], p)
	}
	out := make([]assignedWorkerTasks, 0, len(byWorker))
	for i := range workers {
		tasks, ok := byWorker[workers[i].ID]
		if !ok {
			continue
		}
		out = append(out, assignedWorkerTasks{userView: newUserView(&workers[i]), Tasks: tasks})
	}
	respondOK(w, out, "")
}

// Tasks lists a worker's tasks. Workers may only list their own.
func (h *WorkerHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if user.IsWorker() && user.ID != id {
		respondError(w, r, errForbidden)
		return
	}
	tasks, err := h.store.WorkerTasks(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newTaskViews(tasks), "")
}

func (h *WorkerHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, true)
}

func (h *WorkerHandler) Retain(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, false)
}

func (h *WorkerHandler) setSuspended(w http.ResponseWriter, r *http.Request, suspended bool) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.store.SetSuspended(r.Context(), id, models.RoleWorker, suspended)
	if err != nil {
		respondError(w, r, err)
		return
	}
	message := "worker retained"
	if suspended {
		message = "worker suspended"
	}
	respondOK(w, newUserView(user), message)
}

type removeAssignmentsRequest struct {
	Assignments []struct {
		WorkerID uint `json:"workerId"`
		TaskID   uint `json:"taskId"`
	} `json:"assignments"`
}

func (h *WorkerHandler) RemoveFromTasks(w http.ResponseWriter, r *http.Request) {
	var req removeAssignmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	pairs := make([]database.TaskAssignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		if _, err := h.authorizeTaskWork(r, a.TaskID); err != nil {
			respondError(w, r, err)
			return
		}
		pairs = append(pairs, database.TaskAssignment{WorkerID: a.WorkerID, TaskID: a.TaskID})
	}
	if err := h.store.RemoveWorkerFromTasks(r.Context(), pairs); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, nil, "workers removed from tasks")
}

// FinishTask marks a task completed on behalf of an assigned worker.
func (h *WorkerHandler) FinishTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.authorizeTaskWork(r, taskID); err != nil {
		respondError(w, r, err)
		return
	}
	task, err := h.store.UpdateTaskStatus(r.Context(), taskID, models.TaskCompleted)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newTaskView(task), "task completed")
}

type remainingRequest struct {
	MaterialID uint `json:"materialId"`
	Remaining  *int `json:"remaining"`
}

func (h *WorkerHandler) ReportRemaining(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req remainingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Remaining == nil {
		respondError(w, r, badRequest("remaining is required"))
		return
	}
	if _, err := h.authorizeTaskWork(r, taskID); err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.store.ReportRemaining(r.Context(), taskID, req.MaterialID, *req.Remaining)
	h.respondUsage(w, r, "remaining", report, err, "usage recorded")
}

type useAllRequest struct {
	MaterialID uint `json:"materialId"`
}

func (h *WorkerHandler) UseAll(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req useAllRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.authorizeTaskWork(r, taskID); err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.store.UseCompletely(r.Context(), taskID, req.MaterialID)
	h.respondUsage(w, r, "use_all", report, err, "material used completely")
}

type returnRequest struct {
	MaterialID uint `json:"materialId"`
	TaskID     uint `json:"taskId"`
	Quantity   int  `json:"quantity"`
}

func (h *WorkerHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.authorizeTaskWork(r, req.TaskID); err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.store.ReturnMaterial(r.Context(), req.TaskID, req.MaterialID, req.Quantity)
	h.respondUsage(w, r, "return", report, err, "material returned")
}

func (h *WorkerHandler) respondUsage(w http.ResponseWriter, r *http.Request, kind string, report *database.UsageReport, err error, message string) {
	if err != nil {
		metrics.UsageReports.WithLabelValues(kind, "rejected").Inc()
		respondError(w, r, err)
		return
	}
	metrics.UsageReports.WithLabelValues(kind, "ok").Inc()
	if report.Returned > 0 {
		metrics.ReturnedUnits.Add(float64(report.Returned))
	}
	respondOK(w, newUsageView(report), message)
}

// authorizeTaskWork lets assigned workers act on their own tasks and
// managers act on tasks of projects they manage.
func (h *WorkerHandler) authorizeTaskWork(r *http.Request, taskID uint) (*models.Task, error) {
	task, err := h.store.TaskByID(r.Context(), taskID)
	if err != nil {
		return nil, err
	}
	user := middleware.GetUserFromContext(r.Context())
	if user.IsWorker() {
		ok, err := h.store.IsTaskWorker(r.Context(), taskID, user.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errForbidden
		}
		return task, nil
	}
	if err := canManageProject(r.Context(), h.store, user, task.ProjectID); err != nil {
		return nil, err
	}
	return task, nil
}
