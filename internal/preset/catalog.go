// Package preset holds the process-lifetime scene and style tables. The
// display labels are what the page shows (Chinese first, as in the original
// interface); the fragments are the English text spliced into generation
// instructions.
package preset

// Preset is one selectable option: a stable id, display labels, and the
// prompt fragment embedded verbatim into the model instruction.
type Preset struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	LabelEN  string `json:"label_en"`
	Fragment string `json:"-"`
}

// DisplayLabel resolves the label for a locale. Anything that is not
// English falls back to the primary (Chinese) label.
func (p Preset) DisplayLabel(locale string) string {
	if locale == "en" && p.LabelEN != "" {
		return p.LabelEN
	}
	return p.Label
}

var scenes = []Preset{
	{
		ID:       "city",
		Label:    "🏙️ 城市街道",
		LabelEN:  "🏙️ City street",
		Fragment: "set in a bustling modern city street with glass towers, traffic lights and glowing storefronts",
	},
	{
		ID:       "forest",
		Label:    "🌲 神秘森林",
		LabelEN:  "🌲 Mystic forest",
		Fragment: "set deep inside a mystic forest, shafts of light through tall trees, drifting mist over moss",
	},
	{
		ID:       "beach",
		Label:    "🏖️ 阳光海滩",
		LabelEN:  "🏖️ Sunny beach",
		Fragment: "set on a sunny beach at golden hour, gentle waves, warm sand and a wide open sky",
	},
	{
		ID:       "space",
		Label:    "🚀 浩瀚太空",
		LabelEN:  "🚀 Deep space",
		Fragment: "set in deep space, a vast starfield with a nearby planet and soft nebula light",
	},
	{
		ID:       "ancient",
		Label:    "🏯 古风庭院",
		LabelEN:  "🏯 Ancient courtyard",
		Fragment: "set in a classical East Asian courtyard, tiled roofs, red lanterns and falling blossom petals",
	},
	{
		ID:       "cyberpunk",
		Label:    "🌆 赛博都市",
		LabelEN:  "🌆 Cyberpunk city",
		Fragment: "set in a rain-soaked cyberpunk metropolis at night, dense neon signage and holographic billboards",
	},
}

var styles = []Preset{
	{
		ID:       "anime",
		Label:    "🎌 日系动漫",
		LabelEN:  "🎌 Anime",
		Fragment: "Japanese anime style, clean line art, cel shading, vivid colors",
	},
	{
		ID:       "photo",
		Label:    "📷 写实摄影",
		LabelEN:  "📷 Photorealistic",
		Fragment: "photorealistic style, cinematic lighting, shallow depth of field, fine detail",
	},
	{
		ID:       "oil",
		Label:    "🖼️ 古典油画",
		LabelEN:  "🖼️ Oil painting",
		Fragment: "classical oil painting style, visible brush strokes, rich warm pigments",
	},
	{
		ID:       "watercolor",
		Label:    "🖌️ 清新水彩",
		LabelEN:  "🖌️ Watercolor",
		Fragment: "light watercolor style, soft washes, paper texture, airy pastel palette",
	},
	{
		ID:       "pixel",
		Label:    "👾 像素艺术",
		LabelEN:  "👾 Pixel art",
		Fragment: "retro pixel art style, limited palette, crisp dithering",
	},
	{
		ID:       "render3d",
		Label:    "🧊 3D 渲染",
		LabelEN:  "🧊 3D render",
		Fragment: "stylized 3D render, soft studio lighting, smooth shading, subtle subsurface scattering",
	},
}

// Scenes returns the scene table in display order.
func Scenes() []Preset {
	out := make([]Preset, len(scenes))
	copy(out, scenes)
	return out
}

// Styles returns the style table in display order.
func Styles() []Preset {
	out := make([]Preset, len(styles))
	copy(out, styles)
	return out
}

func SceneByID(id string) (Preset, bool) {
	return byID(scenes, id)
}

func StyleByID(id string) (Preset, bool) {
	return byID(styles, id)
}

func byID(table []Preset, id string) (Preset, bool) {
	for _, p := range table {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
