package studio

import (
	"fmt"
	"strings"

	"scenestudio/internal/preset"
)

// fallbackScript is shown when the text service answers with no text at
// all. An empty reply counts as success at the transport layer.
const fallbackScript = "未能生成脚本内容，请重试。"

func buildImageInstruction(description string, scene, style preset.Preset, refCount int) string {
	parts := []string{}
	if desc := strings.TrimSpace(description); desc != "" {
		parts = append(parts, fmt.Sprintf("Create a single cinematic composite image of %s.", desc))
	} else {
		parts = append(parts, "Create a single cinematic composite image.")
	}
	parts = append(parts, "Scene: "+scene.Fragment+".")
	parts = append(parts, "Art style: "+style.Fragment+".")
	switch {
	case refCount == 1:
		parts = append(parts, "Blend the attached reference image into the scene as visual inspiration; keep its subject recognizable.")
	case refCount > 1:
		parts = append(parts, fmt.Sprintf("Blend the %d attached reference images into one coherent composition; keep their subjects recognizable.", refCount))
	}
	parts = append(parts, "Wide 16:9 framing, rich detail, no text, no watermark.")
	return strings.Join(parts, " ")
}

func buildScriptInstruction(description, sceneLabel, locale string) string {
	parts := []string{
		"Write the script for a 5-second cinematic video clip of a single generated image.",
	}
	if desc := strings.TrimSpace(description); desc != "" {
		parts = append(parts, "The image depicts: "+desc+".")
	}
	if label := strings.TrimSpace(sceneLabel); label != "" {
		parts = append(parts, "The setting is "+label+".")
	}
	parts = append(parts,
		"Return structured text with exactly these four labeled sections:",
		"画面描述 (what the frame shows),",
		"镜头运动 (one camera movement),",
		"光线氛围 (lighting and atmosphere),",
		"动作节拍 (one brief action beat).")
	if locale == "en" {
		parts = append(parts, "Respond in English.")
	} else {
		parts = append(parts, "Respond in Simplified Chinese.")
	}
	return strings.Join(parts, " ")
}
