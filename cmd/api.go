package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"twintrack/client"
)

var (
	loginUsername  string
	loginPassword  string
	analyticsRange string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print the session as shell exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		session, err := c.Login(cmd.Context(), loginUsername, loginPassword)
		if err != nil {
			return notify(err)
		}
		fmt.Printf("export TWINTRACK_API_URL=%q\n", session.BaseURL())
		fmt.Printf("export TWINTRACK_TOKEN=%q\n", session.Token())
		fmt.Printf("export TWINTRACK_USER_ID=%q\n", session.UserID())
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		projects, err := c.Projects(cmd.Context())
		if err != nil {
			return notify(err)
		}
		if output == "json" {
			return printJSON(projects)
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		fmt.Printf("\n%-6s  %-30s  %-12s  %s\n", "ID", "NAME", "CODE", "STATUS")
		fmt.Println(strings.Repeat("-", 64))
		for _, p := range projects {
			fmt.Printf("%-6s  %-30s  %-12s  %s\n", p.ID, truncate(p.Name, 30), p.Code, p.Status)
		}
		return nil
	},
}

var materialsCmd = &cobra.Command{
	Use:   "materials <project-id>",
	Short: "Show a project's materials and allocations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		view, err := c.OpenProject(cmd.Context(), args[0])
		if err != nil {
			return notify(err)
		}
		if output == "json" {
			return printJSON(map[string]any{"materials": view.Materials(), "tasks": view.Tasks()})
		}
		printProject(view)
		return nil
	},
}

func printProject(view *client.ProjectView) {
	fmt.Printf("\n%s (%s)\n\n", view.Project().Name, view.Project().Status)
	fmt.Printf("%-6s  %-24s  %-8s  %10s  %10s\n", "ID", "MATERIAL", "UNIT", "AVAILABLE", "TOTAL")
	fmt.Println(strings.Repeat("-", 66))
	for _, m := range view.Materials() {
		fmt.Printf("%-6s  %-24s  %-8s  %10d  %10d\n", m.ID, truncate(m.Name, 24), m.Unit, m.AvailableQuantity, m.TotalQuantity)
	}
	for _, t := range view.Tasks() {
		if len(t.Materials) == 0 {
			continue
		}
		fmt.Printf("\nTask %s %s [%s]\n", t.ID, t.Name, t.Status)
		for _, a := range t.Materials {
			fmt.Printf("  %-24s  assigned %d, remaining %d, used %d\n", a.MaterialName, a.QuantityAssigned, a.QuantityRemaining, a.Used())
		}
	}
	fmt.Println()
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the logged-in worker's tasks across projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		board, err := c.LoadWorkerBoard(cmd.Context())
		if err != nil {
			return notify(err)
		}
		if output == "json" {
			return printJSON(board)
		}
		for _, p := range board.Projects {
			fmt.Printf("\n%s\n", p.Project.Name)
			if len(p.Tasks) == 0 {
				fmt.Println("  no tasks")
			}
			for _, t := range p.Tasks {
				due := "-"
				if t.DueDate != nil {
					due = t.DueDate.Format("2006-01-02")
				}
				fmt.Printf("  %-6s  %-30s  %-12s  due %s\n", t.ID, truncate(t.Name, 30), t.Status, due)
			}
		}
		if len(board.Skipped) > 0 {
			fmt.Fprintf(os.Stderr, "\nCould not load projects: %s\n", strings.Join(board.Skipped, ", "))
		}
		return nil
	},
}

var allocateCmd = &cobra.Command{
	Use:   "allocate <project-id> <task-id> <material-id>=<quantity>...",
	Short: "Allocate materials to a task, all or nothing",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs, err := parseMaterialRequests(args[2:])
		if err != nil {
			return err
		}
		view, err := openView(cmd, args[0])
		if err != nil {
			return err
		}
		if _, err := view.AllocateMaterials(cmd.Context(), args[1], reqs); err != nil {
			return notify(err)
		}
		printProject(view)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <project-id> <task-id> <material-id> <remaining>",
	Short: "Report how much of a material a task still holds",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		remaining, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("remaining %q is not a number", args[3])
		}
		view, err := openView(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := view.ReportRemaining(cmd.Context(), args[1], args[2], remaining)
		if err != nil {
			return notify(err)
		}
		fmt.Printf("%s: %d used, %d returned to the project\n", res.Allocation.MaterialName, res.Allocation.Used(), res.Returned)
		return nil
	},
}

var returnCmd = &cobra.Command{
	Use:   "return <project-id> <task-id> <material-id> <quantity>",
	Short: "Return unused material from a task to the project",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		quantity, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("quantity %q is not a number", args[3])
		}
		view, err := openView(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := view.Return(cmd.Context(), args[1], args[2], quantity)
		if err != nil {
			return notify(err)
		}
		fmt.Printf("Returned %d. %s now has %d available.\n", res.Returned, res.Material.Name, res.Material.AvailableQuantity)
		return nil
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show tasks completed per day",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		counts, err := c.Analytics(cmd.Context(), analyticsRange)
		if err != nil {
			return notify(err)
		}
		if output == "json" {
			return printJSON(counts)
		}
		for _, d := range counts {
			fmt.Printf("%s  %s %d\n", d.Date, strings.Repeat("#", d.TasksCompleted), d.TasksCompleted)
		}
		return nil
	},
}

// parseMaterialRequests reads <material-id>=<quantity> pairs.
func parseMaterialRequests(args []string) ([]client.MaterialRequest, error) {
	reqs := make([]client.MaterialRequest, 0, len(args))
	for _, arg := range args {
		id, qty, ok := strings.Cut(arg, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("expected <material-id>=<quantity>, got %q", arg)
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("quantity in %q is not a number", arg)
		}
		reqs = append(reqs, client.MaterialRequest{MaterialID: id, Quantity: n})
	}
	return reqs, nil
}

func openView(cmd *cobra.Command, projectID string) (*client.ProjectView, error) {
	c, err := apiClient()
	if err != nil {
		return nil, err
	}
	view, err := c.OpenProject(cmd.Context(), projectID)
	if err != nil {
		return nil, notify(err)
	}
	return view, nil
}

func init() {
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "login name")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")

	analyticsCmd.Flags().StringVar(&analyticsRange, "range", "week", "week, month or year")

	rootCmd.AddCommand(loginCmd, projectsCmd, materialsCmd, tasksCmd, allocateCmd, reportCmd, returnCmd, analyticsCmd)
}
