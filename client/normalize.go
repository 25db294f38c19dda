package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"twintrack/roster"
)

// ErrMalformedPayload means a response could not be mapped onto a
// canonical record.
var ErrMalformedPayload = errors.New("malformed payload")

// rawObject is a decoded JSON object whose fields are read by alias.
type rawObject map[string]json.RawMessage

func parseObject(data json.RawMessage) (rawObject, error) {
	var obj rawObject
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: expected object", ErrMalformedPayload)
	}
	return obj, nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// first returns the value of the first alias present and non-null.
func (o rawObject) first(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func (o rawObject) str(keys ...string) string {
	v, ok := o.first(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.Trim(string(v), `"`)
}

// id accepts numeric and string ids.
func (o rawObject) id(keys ...string) string {
	v, ok := o.first(keys...)
	if !ok {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return ""
}

// number reads a quantity sent either as a number or a numeric string.
func (o rawObject) number(keys ...string) (int, bool, error) {
	v, ok := o.first(keys...)
	if !ok {
		return 0, false, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, true, fmt.Errorf("%w: %s is not a number", ErrMalformedPayload, v)
		}
		n = json.Number(strings.TrimSpace(s))
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != float64(int(f)) {
			return 0, true, fmt.Errorf("%w: %s is not a whole number", ErrMalformedPayload, v)
		}
		i = int(f)
	}
	return i, true, nil
}

func (o rawObject) flag(keys ...string) bool {
	v, ok := o.first(keys...)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	return false
}

func (o rawObject) date(keys ...string) *time.Time {
	s := o.str(keys...)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func (o rawObject) object(keys ...string) rawObject {
	v, ok := o.first(keys...)
	if !ok {
		return nil
	}
	obj, err := parseObject(v)
	if err != nil {
		return nil
	}
	return obj
}

// decodeList accepts a bare array or an object wrapping it in items.
func decodeList(data json.RawMessage) ([]json.RawMessage, error) {
	if isNull(data) {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	obj, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: expected list", ErrMalformedPayload)
	}
	items, ok := obj.first("items", "Items", "data")
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(items, &list); err != nil {
		return nil, fmt.Errorf("%w: items is not a list", ErrMalformedPayload)
	}
	return list, nil
}

func normalizeList[T any](data json.RawMessage, one func(json.RawMessage) (T, error)) ([]T, error) {
	raws, err := decodeList(data)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		v, err := one(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeProject(data json.RawMessage) (Project, error) {
	o, err := parseObject(data)
	if err != nil {
		return Project{}, err
	}
	p := Project{
		ID:          o.id("id", "projectId", "Id"),
		Name:        o.str("name", "projectName", "Name"),
		Code:        o.str("code", "projectCode", "Code"),
		Description: o.str("description", "Description"),
		Status:      o.str("status", "Status"),
	}
	if p.ID == "" {
		return Project{}, fmt.Errorf("%w: project without id", ErrMalformedPayload)
	}
	return p, nil
}

func normalizeMaterial(data json.RawMessage) (Material, error) {
	o, err := parseObject(data)
	if err != nil {
		return Material{}, err
	}
	m := Material{
		ID:        o.id("id", "materialId", "Id"),
		ProjectID: o.id("projectId", "ProjectId"),
		Name:      o.str("name", "materialName", "Name"),
		Unit:      o.str("unit", "Unit"),
	}
	if m.ID == "" {
		return Material{}, fmt.Errorf("%w: material without id", ErrMalformedPayload)
	}

	available, hasAvailable, err := o.number("availableQuantity", "available", "quantity")
	if err != nil {
		return Material{}, err
	}
	total, hasTotal, err := o.number("totalQuantity", "total", "TotalQuantity")
	if err != nil {
		return Material{}, err
	}
	switch {
	case !hasTotal && !hasAvailable:
		return Material{}, fmt.Errorf("%w: material %q has no quantity", ErrMalformedPayload, m.Name)
	case !hasTotal:
		total = available
	case !hasAvailable:
		available = total
	}
	m.TotalQuantity, m.AvailableQuantity = total, available
	if !m.Stock().Valid() {
		return Material{}, fmt.Errorf("%w: material %q has available %d of total %d",
			ErrMalformedPayload, m.Name, available, total)
	}
	return m, nil
}

// normalizeAllocation reads a task's material holding. A missing remaining
// quantity means nothing has been reported yet.
func normalizeAllocation(data json.RawMessage) (Allocation, error) {
	o, err := parseObject(data)
	if err != nil {
		return Allocation{}, err
	}
	a := Allocation{
		MaterialID:   o.id("materialId", "MaterialId", "id"),
		TaskID:       o.id("taskId", "TaskId"),
		MaterialName: o.str("materialName", "name", "Name"),
		Unit:         o.str("unit", "Unit"),
	}
	if nested := o.object("material", "Material"); nested != nil {
		if a.MaterialID == "" {
			a.MaterialID = nested.id("id", "materialId")
		}
		if a.MaterialName == "" {
			a.MaterialName = nested.str("name", "materialName")
		}
		if a.Unit == "" {
			a.Unit = nested.str("unit")
		}
	}
	if a.MaterialID == "" {
		return Allocation{}, fmt.Errorf("%w: allocation without material id", ErrMalformedPayload)
	}

	assigned, ok, err := o.number("quantityAssigned", "assignedQuantity", "quantity")
	if err != nil {
		return Allocation{}, err
	}
	if !ok {
		return Allocation{}, fmt.Errorf("%w: allocation of %q has no assigned quantity", ErrMalformedPayload, a.MaterialName)
	}
	remaining, ok, err := o.number("quantityRemaining", "remainingQuantity", "remaining")
	if err != nil {
		return Allocation{}, err
	}
	if !ok {
		remaining = assigned
	}
	a.QuantityAssigned, a.QuantityRemaining = assigned, remaining
	if !a.Holding().Valid() {
		return Allocation{}, fmt.Errorf("%w: allocation of %q has remaining %d of assigned %d",
			ErrMalformedPayload, a.MaterialName, remaining, assigned)
	}
	return a, nil
}

func normalizePerson(data json.RawMessage) (Person, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return Person{}, fmt.Errorf("%w: person given by name %q only", ErrMalformedPayload, s)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return Person{ID: n.String()}, nil
	}
	o, err := parseObject(data)
	if err != nil {
		return Person{}, err
	}
	p := Person{
		ID:        o.id("id", "workerId", "supervisorId", "userId", "Id"),
		Name:      o.str("fullName", "name", "workerName", "supervisorName", "username"),
		Username:  o.str("username", "userName"),
		Suspended: o.flag("suspended", "isSuspended"),
	}
	if p.ID == "" {
		return Person{}, fmt.Errorf("%w: person %q without id", ErrMalformedPayload, p.Name)
	}
	return p, nil
}

func normalizeTask(data json.RawMessage) (Task, error) {
	o, err := parseObject(data)
	if err != nil {
		return Task{}, err
	}
	t := Task{
		ID:          o.id("id", "taskId", "Id"),
		ProjectID:   o.id("projectId", "ProjectId"),
		Name:        o.str("name", "taskName", "Name"),
		Description: o.str("description", "Description"),
		DueDate:     o.date("dueDate", "deadLine", "deadline"),
		Status:      o.str("status", "Status"),
	}
	if t.ID == "" {
		return Task{}, fmt.Errorf("%w: task without id", ErrMalformedPayload)
	}
	if raw, ok := o.first("assignedWorkers", "workers"); ok {
		if t.AssignedWorkers, err = normalizeList(raw, normalizePerson); err != nil {
			return Task{}, fmt.Errorf("task %s workers: %w", t.ID, err)
		}
	}
	if raw, ok := o.first("materials", "taskMaterials"); ok {
		if t.Materials, err = normalizeList(raw, normalizeAllocation); err != nil {
			return Task{}, fmt.Errorf("task %s materials: %w", t.ID, err)
		}
	}
	for i := range t.Materials {
		if t.Materials[i].TaskID == "" {
			t.Materials[i].TaskID = t.ID
		}
	}
	return t, nil
}

// parseSupervisorRole reads a role given as a name or as a wire level.
func parseSupervisorRole(o rawObject) (roster.Role, error) {
	if name := o.str("role", "Role"); name != "" {
		if r, err := roster.ParseRole(name); err == nil {
			return r, nil
		}
	}
	level, ok, err := o.number("level", "role")
	if err != nil || !ok {
		return "", fmt.Errorf("%w: supervisor without a known role", ErrMalformedPayload)
	}
	return roster.ParseLevel(level)
}

func normalizeAssignments(data json.RawMessage) (Assignments, error) {
	o, err := parseObject(data)
	if err != nil {
		return Assignments{}, err
	}
	a := Assignments{
		ProjectID:   o.id("projectId", "id"),
		ProjectName: o.str("projectName", "name"),
	}
	if raw, ok := o.first("supervisors", "Supervisors"); ok {
		raws, err := decodeList(raw)
		if err != nil {
			return Assignments{}, err
		}
		for _, r := range raws {
			so, err := parseObject(r)
			if err != nil {
				return Assignments{}, err
			}
			role, err := parseSupervisorRole(so)
			if err != nil {
				return Assignments{}, err
			}
			s := ProjectSupervisor{
				SupervisorID: so.id("supervisorId", "userId", "id"),
				Name:         so.str("fullName", "name", "supervisorName"),
				Role:         role,
			}
			if s.SupervisorID == "" {
				return Assignments{}, fmt.Errorf("%w: supervisor %q without id", ErrMalformedPayload, s.Name)
			}
			a.Supervisors = append(a.Supervisors, s)
		}
	}
	if raw, ok := o.first("workers", "Workers"); ok {
		if a.Workers, err = normalizeList(raw, normalizePerson); err != nil {
			return Assignments{}, err
		}
	}
	return a, nil
}

func normalizeSupervisor(data json.RawMessage) (Supervisor, error) {
	p, err := normalizePerson(data)
	if err != nil {
		return Supervisor{}, err
	}
	o, _ := parseObject(data)
	s := Supervisor{Person: p}
	if raw, ok := o.first("roles"); ok {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return Supervisor{}, fmt.Errorf("%w: roles is not a list of names", ErrMalformedPayload)
		}
		for _, n := range names {
			r, err := roster.ParseRole(n)
			if err != nil {
				return Supervisor{}, err
			}
			s.Roles = append(s.Roles, r)
		}
	}
	// Actions follow the roles; a bare isLead flag still counts as Lead.
	s.Actions = roster.SupervisorActions(s.Roles)
	if o.flag("isLead") && !s.IsLead {
		s.Actions = roster.SupervisorActions([]roster.Role{roster.RoleLead})
	}
	return s, nil
}

func normalizeUsage(data json.RawMessage) (UsageResult, error) {
	o, err := parseObject(data)
	if err != nil {
		return UsageResult{}, err
	}
	var u UsageResult
	if raw, ok := o.first("allocation"); ok {
		if u.Allocation, err = normalizeAllocation(raw); err != nil {
			return UsageResult{}, err
		}
	}
	if raw, ok := o.first("material"); ok {
		if u.Material, err = normalizeMaterial(raw); err != nil {
			return UsageResult{}, err
		}
	}
	u.Returned, _, err = o.number("returned")
	return u, err
}

func normalizeDailyCount(data json.RawMessage) (DailyCount, error) {
	o, err := parseObject(data)
	if err != nil {
		return DailyCount{}, err
	}
	n, _, err := o.number("tasksCompleted", "count", "value")
	if err != nil {
		return DailyCount{}, err
	}
	return DailyCount{Date: o.str("date", "day", "label"), TasksCompleted: n}, nil
}

func normalizeWorkerPage(data json.RawMessage) (WorkerPage, error) {
	items, err := normalizeList(data, normalizePerson)
	if err != nil {
		return WorkerPage{}, err
	}
	page := WorkerPage{Items: items, Total: len(items), Page: 1, PageSize: len(items)}
	if o, err := parseObject(data); err == nil {
		if n, ok, _ := o.number("total", "totalCount"); ok {
			page.Total = n
		}
		if n, ok, _ := o.number("page", "pageNumber"); ok {
			page.Page = n
		}
		if n, ok, _ := o.number("pageSize"); ok {
			page.PageSize = n
		}
	}
	return page, nil
}
