package handlers

import (
	"net/http"
	"strings"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
)

type InquiryHandler struct {
	Inquiries *services.InquiryService
}

func NewInquiryHandler(svc *services.InquiryService) *InquiryHandler {
	return &InquiryHandler{Inquiries: svc}
}

func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Inquiries.List(r.Context(), services.InquiryFilter{
		Status:      models.InquiryStatus(strings.ToUpper(q.Get("status"))),
		InquiryType: models.InquiryType(strings.ToUpper(q.Get("inquiryType"))),
		Page:        httpx.QueryInt(r, "page", 1),
		Limit:       httpx.QueryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *InquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InquiryInput
	if !decode(w, r, &in) {
		return
	}
	inq, err := h.Inquiries.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inq)
}

func (h *InquiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	inq, err := h.Inquiries.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inq)
}

type inquiryStatusBody struct {
	Status models.InquiryStatus `json:"status"`
}

func (h *InquiryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body inquiryStatusBody
	if !decode(w, r, &body) {
		return
	}
	inq, err := h.Inquiries.UpdateStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inq)
}

func (h *InquiryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Inquiries.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deleted{Success: true})
}
