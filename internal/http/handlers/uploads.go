package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/storage"
)

// AttachMedia stores every multipart "file" part and appends them to the case.
func (a *App) AttachMedia(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.Cases.Get(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.UploadMaxBytes)
	if err := r.ParseMultipartForm(a.UploadMaxBytes); err != nil {
		a.uploadError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, string(domain.FailureValidation), "at least one file is required")
		return
	}
	media := make([]domain.Media, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			a.fail(w, r, err)
			return
		}
		obj, err := a.Store.Put(r.Context(), fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
		_ = f.Close()
		if err != nil {
			if errors.Is(err, storage.ErrEmptyObject) {
				a.error(w, http.StatusBadRequest, string(domain.FailureValidation), fh.Filename+" is empty")
				return
			}
			a.fail(w, r, err)
			return
		}
		media = append(media, domain.Media{URL: obj.URL, ContentType: obj.ContentType})
	}

	c, err := a.Cases.AttachMedia(r.Context(), id, media)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, c)
}

// Upload stores a raw request body and returns where it landed.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		a.error(w, http.StatusBadRequest, string(domain.FailureValidation), "filename is required")
		return
	}
	if r.ContentLength > a.UploadMaxBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
		return
	}
	body := http.MaxBytesReader(w, r.Body, a.UploadMaxBytes)
	obj, err := a.Store.Put(r.Context(), filename, body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		a.uploadError(w, err)
		return
	}
	a.json(w, http.StatusCreated, obj)
}

func (a *App) uploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
	case errors.Is(err, storage.ErrEmptyObject):
		a.error(w, http.StatusBadRequest, string(domain.FailureValidation), "upload is empty")
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		a.error(w, http.StatusBadRequest, string(domain.FailureValidation), "multipart form expected")
	default:
		a.Logger.Error().Err(err).Msg("upload failed")
		a.error(w, http.StatusInternalServerError, "internal", "upload failed")
	}
}
