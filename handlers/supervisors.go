package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"twintrack/database"
	"twintrack/models"
	"twintrack/roster"
)

type SupervisorHandler struct {
	store *database.Store
}

func NewSupervisorHandler(store *database.Store) *SupervisorHandler {
	return &SupervisorHandler{store: store}
}

// List returns every supervisor with the roles held across projects and
// which roster actions are allowed for them.
func (h *SupervisorHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		supervisors []models.User
		roles       map[uint][]roster.Role
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		supervisors, _, err = h.store.UsersByRole(ctx, models.RoleSupervisor, 1, 500)
		return err
	})
	g.Go(func() error {
		var err error
		roles, err = h.store.SupervisorRoles(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]supervisorView, 0, len(supervisors))
	for i := range supervisors {
		held := roles[supervisors[i].ID]
		if held == nil {
			held = []roster.Role{}
		}
		out = append(out, supervisorView{
			userView: newUserView(&supervisors[i]),
			Roles:    held,
			Actions:  roster.SupervisorActions(held),
		})
	}
	respondOK(w, out, "")
}

func (h *SupervisorHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, true)
}

func (h *SupervisorHandler) Retain(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, false)
}

func (h *SupervisorHandler) setSuspended(w http.ResponseWriter, r *http.Request, suspended bool) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.store.SetSuspended(r.Context(), id, models.RoleSupervisor, suspended)
	if err != nil {
		recordRosterRejection(err)
		respondError(w, r, err)
		return
	}
	message := "supervisor retained"
	if suspended {
		message = "supervisor suspended"
	}
	respondOK(w, newUserView(user), message)
}
