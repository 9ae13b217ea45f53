package model

import "strings"

// imageNameHints are the case-insensitive name substrings that mark a
// catalog entry as usable for image generation.
var imageNameHints = []string{"vision", "image", "multimodal"}

// TextCapable filters the catalog to entries advertising text generation
// support.
func TextCapable(infos []ModelInfo) []ModelInfo {
	out := make([]ModelInfo, 0, len(infos))
	for _, info := range infos {
		for _, c := range info.Capabilities {
			if c == CapabilityTextGeneration {
				out = append(out, info)
				break
			}
		}
	}
	return out
}

// ImageCapable filters the catalog to entries whose ID or display name
// suggests vision/image/multimodal support. Name-substring heuristic; the
// catalog does not advertise image output directly.
func ImageCapable(infos []ModelInfo) []ModelInfo {
	out := make([]ModelInfo, 0, len(infos))
	for _, info := range infos {
		name := strings.ToLower(info.ID + " " + info.DisplayName)
		for _, hint := range imageNameHints {
			if strings.Contains(name, hint) {
				out = append(out, info)
				break
			}
		}
	}
	return out
}
