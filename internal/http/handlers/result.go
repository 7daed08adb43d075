package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"scenestudio/internal/middleware"
	"scenestudio/pkg/zip"
)

// ResultImage serves the generated image as a download named with a
// millisecond timestamp.
func (a *App) ResultImage(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	data, mime, err := st.ResultAsset()
	if err != nil {
		a.domainError(w, err)
		return
	}
	name := fmt.Sprintf("scene-%d%s", time.Now().UnixMilli(), extensionForMIME(mime))
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ResultBundle packs the image, the script and the inputs that produced them
// into one zip download.
func (a *App) ResultBundle(w http.ResponseWriter, r *http.Request) {
	st := a.Sessions.Resolve(w, r)
	data, mime, err := st.ResultAsset()
	if err != nil {
		a.domainError(w, err)
		return
	}

	stamp := time.Now().UnixMilli()
	entries := []zip.Entry{
		{Name: fmt.Sprintf("scene-%d%s", stamp, extensionForMIME(mime)), Data: data},
	}
	if text, ok := st.ScriptText(); ok {
		entries = append(entries, zip.Entry{Name: "script.txt", Data: []byte(text)})
	}
	if desc, scene, style, ok := st.Provenance(); ok {
		locale := middleware.LocaleFromContext(r.Context())
		var b strings.Builder
		fmt.Fprintf(&b, "description: %s\n", desc)
		fmt.Fprintf(&b, "scene: %s\n", scene.DisplayLabel(locale))
		fmt.Fprintf(&b, "style: %s\n", style.DisplayLabel(locale))
		entries = append(entries, zip.Entry{Name: "prompt.txt", Data: []byte(b.String())})
	}

	archive, err := zip.Archive(entries)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("scene-%d.zip", stamp)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func extensionForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
