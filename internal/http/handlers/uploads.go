package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scenestudio/internal/upload"
)

// UploadsAdd admits a multipart batch of reference images (field "files").
// The whole batch is rejected when any file is unusable or capacity would be
// exceeded.
func (a *App) UploadsAdd(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes*(upload.MaxFiles+1))
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the allowed size")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", "no files in request")
		return
	}

	batch := make([]upload.Incoming, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			a.error(w, http.StatusUnprocessableEntity, "validation_failed", "unreadable file part")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			a.error(w, http.StatusUnprocessableEntity, "validation_failed", "unreadable file part")
			return
		}
		batch = append(batch, upload.Incoming{
			Name: part.Filename,
			MIME: part.Header.Get("Content-Type"),
			Data: data,
		})
	}

	if _, err := st.AddUploads(r.Context(), batch); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, st.Snapshot())
}

// UploadRemove drops one reference image. Removing an absent id is a no-op
// and still answers 204.
func (a *App) UploadRemove(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	st.RemoveUpload(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// UploadPreview streams the stored bytes behind a thumbnail.
func (a *App) UploadPreview(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	data, mime, ok := st.UploadPreview(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no such upload")
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
