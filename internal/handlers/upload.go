package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/storage"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

const (
	MaxUploadSize  = 5 << 20
	MaxUploadFiles = 20
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

type UploadHandler struct {
	Store storage.Store
}

func NewUploadHandler(store storage.Store) *UploadHandler {
	return &UploadHandler{Store: store}
}

type uploadResponse struct {
	URL  string   `json:"url"`
	URLs []string `json:"urls"`
}

type checkedFile struct {
	header *multipart.FileHeader
	mime   *mimetype.MIME
}

// sniff detects the content type of fh and rejects anything outside the image allow-list.
func sniff(fh *multipart.FileHeader) (*mimetype.MIME, string) {
	if fh.Size > MaxUploadSize {
		return nil, "too_large"
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "unreadable"
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, "unreadable"
	}
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, "unsupported_type"
	}
	return mt, ""
}

// Upload stores one or more images sent as multipart "files" (or "file") parts.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadFiles*MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpx.JSONError(w, http.StatusBadRequest, "Validation failed", validation.Violations{"file": "too_large"})
			return
		}
		httpx.JSONError(w, http.StatusBadRequest, "Invalid multipart body", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "Validation failed", validation.Violations{"file": "required"})
		return
	}
	if len(headers) > MaxUploadFiles {
		httpx.JSONError(w, http.StatusBadRequest, "Validation failed", validation.Violations{"file": "too_many"})
		return
	}

	checked := make([]checkedFile, 0, len(headers))
	for _, fh := range headers {
		mt, code := sniff(fh)
		if code != "" {
			httpx.JSONError(w, http.StatusBadRequest, "Validation failed", validation.Violations{fh.Filename: code})
			return
		}
		checked = append(checked, checkedFile{header: fh, mime: mt})
	}

	urls := make([]string, 0, len(checked))
	stored := make([]string, 0, len(checked))
	for _, c := range checked {
		key := uuid.NewString() + c.mime.Extension()
		url, err := h.put(r, key, c)
		if err != nil {
			h.discard(r, stored)
			writeError(w, r, err)
			return
		}
		stored = append(stored, key)
		urls = append(urls, url)
	}
	httpx.JSON(w, http.StatusOK, uploadResponse{URL: urls[0], URLs: urls})
}

func (h *UploadHandler) put(r *http.Request, key string, c checkedFile) (string, error) {
	f, err := c.header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.Store.Put(r.Context(), key, c.mime.String(), io.LimitReader(f, MaxUploadSize))
}

// discard removes objects stored earlier in a request that failed part way.
func (h *UploadHandler) discard(r *http.Request, keys []string) {
	for _, key := range keys {
		if err := h.Store.Delete(context.WithoutCancel(r.Context()), key); err != nil {
			log.WithError(err).WithField("key", key).Warn("failed to remove partial upload")
		}
	}
}
