package handlers

import (
	"net/http"

	"twintrack/database"
	"twintrack/middleware"
)

type MaterialHandler struct {
	store *database.Store
}

func NewMaterialHandler(store *database.Store) *MaterialHandler {
	return &MaterialHandler{store: store}
}

type createMaterialRequest struct {
	Name          string `json:"name"`
	TotalQuantity int    `json:"totalQuantity"`
	Unit          string `json:"unit"`
	ProjectID     uint   `json:"projectId"`
}

func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ProjectID == 0 {
		respondError(w, r, badRequest("projectId is required"))
		return
	}
	user := middleware.GetUserFromContext(r.Context())
	if err := canManageProject(r.Context(), h.store, user, req.ProjectID); err != nil {
		respondError(w, r, err)
		return
	}

	m, err := h.store.CreateMaterial(r.Context(), req.ProjectID, req.Name, req.Unit, req.TotalQuantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, newMaterialView(m), "material created")
}

type increaseMaterialRequest struct {
	ID         uint `json:"id"`
	IncreaseBy int  `json:"increaseBy"`
}

func (h *MaterialHandler) Increase(w http.ResponseWriter, r *http.Request) {
	var req increaseMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.authorize(r, req.ID); err != nil {
		respondError(w, r, err)
		return
	}
	m, err := h.store.IncreaseMaterial(r.Context(), req.ID, req.IncreaseBy)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newMaterialView(m), "stock increased")
}

type updateMaterialRequest struct {
	ID       uint `json:"id"`
	Quantity int  `json:"quantity"`
}

// Update sets a new total quantity; units held by tasks stay allocated.
func (h *MaterialHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.authorize(r, req.ID); err != nil {
		respondError(w, r, err)
		return
	}
	m, err := h.store.SetMaterialTotal(r.Context(), req.ID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, newMaterialView(m), "material updated")
}

func (h *MaterialHandler) authorize(r *http.Request, materialID uint) error {
	m, err := h.store.MaterialByID(r.Context(), materialID)
	if err != nil {
		return err
	}
	return canManageProject(r.Context(), h.store, middleware.GetUserFromContext(r.Context()), m.ProjectID)
}
