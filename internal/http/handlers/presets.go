package handlers

import (
	"net/http"

	"scenestudio/internal/middleware"
	"scenestudio/internal/preset"
)

type presetItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func localizedPresets(list []preset.Preset, locale string) []presetItem {
	items := make([]presetItem, len(list))
	for i, p := range list {
		items[i] = presetItem{ID: p.ID, Label: p.DisplayLabel(locale)}
	}
	return items
}

// Presets lists the scene and style catalogs with labels for the request
// locale.
func (a *App) Presets(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, http.StatusOK, map[string][]presetItem{
		"scenes": localizedPresets(preset.Scenes(), locale),
		"styles": localizedPresets(preset.Styles(), locale),
	})
}
