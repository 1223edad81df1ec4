package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/middleware"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
)

type TruckHandler struct {
	Trucks *services.TruckService
	Views  *services.ViewRecorder
}

func NewTruckHandler(trucks *services.TruckService, views *services.ViewRecorder) *TruckHandler {
	return &TruckHandler{Trucks: trucks, Views: views}
}

func truckFilter(r *http.Request) services.TruckFilter {
	q := r.URL.Query()
	f := services.TruckFilter{
		Query:       q.Get("q"),
		Make:        q.Get("make"),
		Model:       q.Get("model"),
		ListingType: models.ListingType(strings.ToUpper(q.Get("listingType"))),
		Status:      models.TruckStatus(strings.ToUpper(q.Get("status"))),
		MinYear:     httpx.QueryInt(r, "minYear", 0),
		MaxYear:     httpx.QueryInt(r, "maxYear", 0),
		MaxMileage:  httpx.QueryInt(r, "maxMileage", 0),
		Sort:        q.Get("sort"),
		Page:        httpx.QueryInt(r, "page", 1),
		Limit:       httpx.QueryInt(r, "limit", 0),
	}
	if b, err := strconv.ParseBool(q.Get("featured")); err == nil {
		f.Featured = &b
	}
	if v, ok := httpx.QueryFloat(r, "minPrice"); ok {
		f.MinPrice = &v
	}
	if v, ok := httpx.QueryFloat(r, "maxPrice"); ok {
		f.MaxPrice = &v
	}
	return f
}

func (h *TruckHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.Trucks.List(r.Context(), truckFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// Get returns one truck by id or slug and records the view.
func (h *TruckHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Trucks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Views != nil {
		h.Views.Record(r.Context(), services.Visit{
			TruckID:   t.ID,
			Referer:   r.Referer(),
			ClientIP:  middleware.ClientIP(r),
			SessionID: middleware.VisitorID(r),
		})
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *TruckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.TruckInput
	if !decode(w, r, &in) {
		return
	}
	t, err := h.Trucks.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *TruckHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.TruckInput
	if !decode(w, r, &in) {
		return
	}
	t, err := h.Trucks.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *TruckHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var p services.TruckPatch
	if !decode(w, r, &p) {
		return
	}
	t, err := h.Trucks.Patch(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *TruckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Trucks.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deleted{Success: true})
}
