package client

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProjectTasks is one project's tasks on a worker's board.
type ProjectTasks struct {
	Project Project
	Tasks   []Task
}

// WorkerBoard lists the session user's tasks grouped by project.
type WorkerBoard struct {
	Projects []ProjectTasks
	// Skipped holds the ids of projects whose tasks could not be loaded.
	Skipped []string
}

const boardConcurrency = 4

// LoadWorkerBoard fetches the caller's projects and then each project's
// tasks concurrently. A project that fails to load is logged and skipped.
func (c *Client) LoadWorkerBoard(ctx context.Context) (*WorkerBoard, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	projects, err := c.MyProjects(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		board WorkerBoard
	)
	userID := c.session.UserID()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(boardConcurrency)
	for _, p := range projects {
		g.Go(func() error {
			tasks, err := c.ProjectTasks(gctx, p.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("worker board: skipping project %s (%s): %v", p.ID, p.Name, err)
				board.Skipped = append(board.Skipped, p.ID)
				return nil
			}
			mine := make([]Task, 0, len(tasks))
			for _, t := range tasks {
				if t.HasWorker(userID) {
					mine = append(mine, t)
				}
			}
			board.Projects = append(board.Projects, ProjectTasks{Project: p, Tasks: mine})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "load worker board", Err: err}
	}

	order := make(map[string]int, len(projects))
	for i, p := range projects {
		order[p.ID] = i
	}
	sort.Slice(board.Projects, func(i, j int) bool {
		return order[board.Projects[i].Project.ID] < order[board.Projects[j].Project.ID]
	})
	sort.Strings(board.Skipped)
	return &board, nil
}

// Tasks returns every task on the board.
func (b *WorkerBoard) Tasks() []Task {
	var out []Task
	for _, p := range b.Projects {
		out = append(out, p.Tasks...)
	}
	return out
}
