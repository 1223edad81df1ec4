package handlers

import (
	"net/http"
	"strings"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
)

type FinancingHandler struct {
	Applications *services.FinancingService
}

func NewFinancingHandler(svc *services.FinancingService) *FinancingHandler {
	return &FinancingHandler{Applications: svc}
}

func (h *FinancingHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.Applications.List(r.Context(), services.FinancingFilter{
		Status: models.FinancingStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		Page:   httpx.QueryInt(r, "page", 1),
		Limit:  httpx.QueryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *FinancingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.FinancingInput
	if !decode(w, r, &in) {
		return
	}
	app, err := h.Applications.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

func (h *FinancingHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.Applications.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *FinancingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p services.FinancingPatch
	if !decode(w, r, &p) {
		return
	}
	app, err := h.Applications.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *FinancingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Applications.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deleted{Success: true})
}
