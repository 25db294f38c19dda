package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type ProjectStatus string

const (
	ProjectPending   ProjectStatus = "Pending"
	ProjectActive    ProjectStatus = "Active"
	ProjectCompleted ProjectStatus = "Completed"
)

var projectFlow = []ProjectStatus{ProjectPending, ProjectActive, ProjectCompleted}

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "Not Started"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
)

var taskFlow = []TaskStatus{TaskNotStarted, TaskInProgress, TaskCompleted}

func stage[S ~string](flow []S, s S) int {
	for i, f := range flow {
		if f == s {
			return i
		}
	}
	return -1
}

func parseStatus[S ~string](flow []S, raw string) (S, error) {
	raw = strings.TrimSpace(raw)
	for _, f := range flow {
		if strings.EqualFold(raw, string(f)) {
			return f, nil
		}
	}
	var zero S
	return zero, fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// Statuses only move forward; skipping a stage is allowed.
func checkTransition[S ~string](flow []S, from, to S) error {
	i, j := stage(flow, from), stage(flow, to)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if j < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if j <= i {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func ParseProjectStatus(s string) (ProjectStatus, error) {
	return parseStatus(projectFlow, s)
}

func (s ProjectStatus) CanTransitionTo(to ProjectStatus) error {
	return checkTransition(projectFlow, s, to)
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	return parseStatus(taskFlow, s)
}

func (s TaskStatus) CanTransitionTo(to TaskStatus) error {
	return checkTransition(taskFlow, s, to)
}
