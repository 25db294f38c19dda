package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Login exchanges credentials for a token and returns the resulting
// session. The client itself keeps its current session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	data, _, err := c.do(ctx, http.MethodPost, "auth/login", nil, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	o, err := parseObject(data)
	if err != nil {
		return nil, &TransportError{Op: "decode login", Err: err}
	}
	token := o.str("token", "accessToken")
	userID := o.id("userId", "id")
	if userID == "" {
		if u := o.object("user"); u != nil {
			userID = u.id("id", "userId")
		}
	}
	if token == "" || userID == "" {
		return nil, &TransportError{Op: "decode login", Err: fmt.Errorf("%w: login without token or user id", ErrMalformedPayload)}
	}
	return c.session.WithCredentials(token, userID), nil
}

func (c *Client) Me(ctx context.Context) (Person, error) {
	if err := c.requireSession(); err != nil {
		return Person{}, err
	}
	data, msg, err := c.do(ctx, http.MethodGet, "auth/me", nil, nil)
	p, _, err := decodeOne(data, msg, err, normalizePerson)
	return p, err
}

func (c *Client) requireSession() error {
	if !c.session.Authenticated() {
		return ErrNoSession
	}
	return nil
}

// Projects

func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	data, _, err := c.do(ctx, http.MethodGet, "projects", nil, nil)
	return decodeMany(data, err, normalizeProject)
}

func (c *Client) MyProjects(ctx context.Context) ([]Project, error) {
	data, _, err := c.do(ctx, http.MethodGet, "projects/my-projects", nil, nil)
	return decodeMany(data, err, normalizeProject)
}

func (c *Client) Project(ctx context.Context, id string) (Project, error) {
	data, msg, err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(id), nil, nil)
	p, _, err := decodeOne(data, msg, err, normalizeProject)
	return p, err
}

type NewProject struct {
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (c *Client) CreateProject(ctx context.Context, p NewProject) (Project, error) {
	if p.Name == "" {
		return Project{}, &ValidationError{Title: "Invalid project", Message: "project name is required"}
	}
	data, msg, err := c.do(ctx, http.MethodPost, "projects", nil, p)
	project, _, err := decodeOne(data, msg, err, normalizeProject)
	return project, err
}

func (c *Client) UpdateProjectStatus(ctx context.Context, id, status string) (Project, error) {
	data, msg, err := c.do(ctx, http.MethodPut, "projects/"+url.PathEscape(id)+"/status", nil,
		map[string]string{"status": status})
	p, _, err := decodeOne(data, msg, err, normalizeProject)
	return p, err
}

func (c *Client) ProjectMaterials(ctx context.Context, projectID string) ([]Material, error) {
	data, _, err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(projectID)+"/materials", nil, nil)
	return decodeMany(data, err, normalizeMaterial)
}

func (c *Client) ProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	data, _, err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(projectID)+"/tasks", nil, nil)
	return decodeMany(data, err, normalizeTask)
}

func (c *Client) ProjectAssignments(ctx context.Context, projectID string) (Assignments, error) {
	data, msg, err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(projectID)+"/assignments", nil, nil)
	a, _, err := decodeOne(data, msg, err, normalizeAssignments)
	if a.ProjectID == "" {
		a.ProjectID = projectID
	}
	return a, err
}

func (c *Client) AssignSupervisor(ctx context.Context, projectID, supervisorID string, level int) (Assignments, error) {
	q := url.Values{"supervisorId": {supervisorID}, "level": {strconv.Itoa(level)}}
	data, msg, err := c.do(ctx, http.MethodPost, "projects/"+url.PathEscape(projectID)+"/assign-supervisor", q, nil)
	a, _, err := decodeOne(data, msg, err, normalizeAssignments)
	return a, err
}

func (c *Client) RemoveSupervisor(ctx context.Context, projectID, supervisorID string) (Assignments, error) {
	path := "projects/" + url.PathEscape(projectID) + "/supervisors/" + url.PathEscape(supervisorID)
	data, msg, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	a, _, err := decodeOne(data, msg, err, normalizeAssignments)
	return a, err
}

func (c *Client) AssignWorkerToProject(ctx context.Context, projectID, workerID string) (Assignments, error) {
	q := url.Values{"workerId": {workerID}}
	data, msg, err := c.do(ctx, http.MethodPost, "projects/"+url.PathEscape(projectID)+"/assign-worker", q, nil)
	a, _, err := decodeOne(data, msg, err, normalizeAssignments)
	return a, err
}

// Materials

func (c *Client) CreateMaterial(ctx context.Context, projectID, name, unit string, total int) (Material, error) {
	if name == "" {
		return Material{}, &ValidationError{Title: "Invalid material", Message: "material name is required"}
	}
	if total < 0 {
		return Material{}, &ValidationError{Title: "Invalid material", Message: "total quantity must not be negative"}
	}
	id, err := wireID(projectID)
	if err != nil {
		return Material{}, err
	}
	data, msg, err := c.do(ctx, http.MethodPost, "material/create", nil, map[string]any{
		"projectId":     id,
		"name":          name,
		"unit":          unit,
		"totalQuantity": total,
	})
	m, _, err := decodeOne(data, msg, err, normalizeMaterial)
	return m, err
}

func (c *Client) IncreaseMaterial(ctx context.Context, materialID string, by int) (Material, error) {
	if by <= 0 {
		return Material{}, &ValidationError{Title: "Invalid quantity", Message: "increase must be positive"}
	}
	id, err := wireID(materialID)
	if err != nil {
		return Material{}, err
	}
	data, msg, err := c.do(ctx, http.MethodPut, "material/increase", nil, map[string]any{"id": id, "increaseBy": by})
	m, _, err := decodeOne(data, msg, err, normalizeMaterial)
	return m, err
}

func (c *Client) SetMaterialTotal(ctx context.Context, materialID string, total int) (Material, error) {
	if total < 0 {
		return Material{}, &ValidationError{Title: "Invalid quantity", Message: "total quantity must not be negative"}
	}
	id, err := wireID(materialID)
	if err != nil {
		return Material{}, err
	}
	data, msg, err := c.do(ctx, http.MethodPut, "material/update", nil, map[string]any{"id": id, "quantity": total})
	m, _, err := decodeOne(data, msg, err, normalizeMaterial)
	return m, err
}

// Tasks

type NewTask struct {
	ProjectID   string
	Name        string
	Description string
	Deadline    time.Time
}

func (c *Client) CreateTask(ctx context.Context, t NewTask) (Task, error) {
	if t.Name == "" {
		return Task{}, &ValidationError{Title: "Invalid task", Message: "task name is required"}
	}
	projectID, err := wireID(t.ProjectID)
	if err != nil {
		return Task{}, err
	}
	body := map[string]any{
		"projectId":   projectID,
		"name":        t.Name,
		"description": t.Description,
	}
	if !t.Deadline.IsZero() {
		body["deadLine"] = t.Deadline.UTC().Format(time.RFC3339)
	}
	data, msg, err := c.do(ctx, http.MethodPost, "task/create", nil, body)
	task, _, err := decodeOne(data, msg, err, normalizeTask)
	return task, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	data, msg, err := c.do(ctx, http.MethodPut, "task/"+url.PathEscape(taskID)+"/status", nil,
		map[string]string{"status": status})
	t, _, err := decodeOne(data, msg, err, normalizeTask)
	return t, err
}

func (c *Client) AssignWorkerToTask(ctx context.Context, taskID, workerID string) (Task, error) {
	path := "task/" + url.PathEscape(taskID) + "/assign/" + url.PathEscape(workerID)
	data, msg, err := c.do(ctx, http.MethodPost, path, nil, nil)
	t, _, err := decodeOne(data, msg, err, normalizeTask)
	return t, err
}

// MaterialRequest asks for Quantity units of a material for a task.
type MaterialRequest struct {
	MaterialID string
	Quantity   int
}

func (c *Client) AssignMaterials(ctx context.Context, taskID string, reqs []MaterialRequest) ([]Allocation, error) {
	if len(reqs) == 0 {
		return nil, &ValidationError{Title: "Invalid allocation", Message: "select at least one material"}
	}
	type line struct {
		ID       uint64 `json:"id"`
		Quantity int    `json:"quantity"`
	}
	lines := make([]line, 0, len(reqs))
	for _, r := range reqs {
		id, err := wireID(r.MaterialID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line{ID: id, Quantity: r.Quantity})
	}
	data, _, err := c.do(ctx, http.MethodPost, "task/"+url.PathEscape(taskID)+"/assign-materials", nil,
		map[string]any{"materials": lines})
	return decodeMany(data, err, normalizeAllocation)
}

// People

func (c *Client) Supervisors(ctx context.Context) ([]Supervisor, error) {
	data, _, err := c.do(ctx, http.MethodGet, "supervisors", nil, nil)
	return decodeMany(data, err, normalizeSupervisor)
}

func (c *Client) SuspendSupervisor(ctx context.Context, id string) (Person, error) {
	return c.person(ctx, http.MethodPut, "supervisors/"+url.PathEscape(id)+"/suspend")
}

func (c *Client) RetainSupervisor(ctx context.Context, id string) (Person, error) {
	return c.person(ctx, http.MethodPut, "supervisors/"+url.PathEscape(id)+"/retain")
}

func (c *Client) Workers(ctx context.Context, page, pageSize int) (WorkerPage, error) {
	q := url.Values{"page": {strconv.Itoa(page)}, "pageSize": {strconv.Itoa(pageSize)}}
	data, msg, err := c.do(ctx, http.MethodGet, "worker", q, nil)
	p, _, err := decodeOne(data, msg, err, normalizeWorkerPage)
	return p, err
}

func (c *Client) SuspendWorker(ctx context.Context, id string) (Person, error) {
	return c.person(ctx, http.MethodPut, "worker/"+url.PathEscape(id)+"/suspend")
}

func (c *Client) RetainWorker(ctx context.Context, id string) (Person, error) {
	return c.person(ctx, http.MethodPut, "worker/"+url.PathEscape(id)+"/retain")
}

func (c *Client) person(ctx context.Context, method, path string) (Person, error) {
	data, msg, err := c.do(ctx, method, path, nil, nil)
	p, _, err := decodeOne(data, msg, err, normalizePerson)
	return p, err
}

func (c *Client) WorkerTasks(ctx context.Context, workerID string) ([]Task, error) {
	data, _, err := c.do(ctx, http.MethodGet, "worker/"+url.PathEscape(workerID)+"/tasks", nil, nil)
	return decodeMany(data, err, normalizeTask)
}

// TaskAssignment pairs a worker with a task.
type TaskAssignment struct {
	WorkerID string
	TaskID   string
}

func (c *Client) RemoveWorkersFromTasks(ctx context.Context, pairs []TaskAssignment) error {
	if len(pairs) == 0 {
		return &ValidationError{Title: "Nothing to remove", Message: "select at least one assignment"}
	}
	type line struct {
		WorkerID uint64 `json:"workerId"`
		TaskID   uint64 `json:"taskId"`
	}
	lines := make([]line, 0, len(pairs))
	for _, p := range pairs {
		w, err := wireID(p.WorkerID)
		if err != nil {
			return err
		}
		t, err := wireID(p.TaskID)
		if err != nil {
			return err
		}
		lines = append(lines, line{WorkerID: w, TaskID: t})
	}
	_, _, err := c.do(ctx, http.MethodDelete, "worker/tasks/remove", nil, map[string]any{"assignments": lines})
	return err
}

// Worker usage

func (c *Client) FinishTask(ctx context.Context, taskID string) (Task, error) {
	data, msg, err := c.do(ctx, http.MethodPost, "worker/task/"+url.PathEscape(taskID), nil, nil)
	t, _, err := decodeOne(data, msg, err, normalizeTask)
	return t, err
}

func (c *Client) ReportRemaining(ctx context.Context, taskID, materialID string, remaining int) (UsageResult, error) {
	id, err := wireID(materialID)
	if err != nil {
		return UsageResult{}, err
	}
	data, msg, err := c.do(ctx, http.MethodPost, "worker/task/"+url.PathEscape(taskID)+"/remaining", nil,
		map[string]any{"materialId": id, "remaining": remaining})
	u, _, err := decodeOne(data, msg, err, normalizeUsage)
	return u, err
}

func (c *Client) UseAll(ctx context.Context, taskID, materialID string) (UsageResult, error) {
	id, err := wireID(materialID)
	if err != nil {
		return UsageResult{}, err
	}
	data, msg, err := c.do(ctx, http.MethodPost, "worker/task/"+url.PathEscape(taskID)+"/use-all", nil,
		map[string]any{"materialId": id})
	u, _, err := decodeOne(data, msg, err, normalizeUsage)
	return u, err
}

func (c *Client) ReturnMaterial(ctx context.Context, taskID, materialID string, quantity int) (UsageResult, error) {
	mid, err := wireID(materialID)
	if err != nil {
		return UsageResult{}, err
	}
	tid, err := wireID(taskID)
	if err != nil {
		return UsageResult{}, err
	}
	data, msg, err := c.do(ctx, http.MethodPost, "worker/return", nil,
		map[string]any{"materialId": mid, "taskId": tid, "quantity": quantity})
	u, _, err := decodeOne(data, msg, err, normalizeUsage)
	return u, err
}

// Analytics returns completed tasks per day for "week", "month" or "year".
func (c *Client) Analytics(ctx context.Context, rng string) ([]DailyCount, error) {
	data, _, err := c.do(ctx, http.MethodGet, "dashboard/analytics", url.Values{"range": {rng}}, nil)
	return decodeMany(data, err, normalizeDailyCount)
}

// wireID converts a canonical id back to the backend's numeric form.
func wireID(id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, &ValidationError{Title: "Invalid reference", Message: fmt.Sprintf("%q is not a valid id", id)}
	}
	return n, nil
}
