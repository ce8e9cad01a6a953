package models

import "ai-artist-backend/internal/generation"

type SaveCreationRequest struct {
	// Type is "image" or "video".
	Type string `json:"type" binding:"required" example:"image"`
	// Data is a data URI, or bare base64 for images (treated as PNG).
	Data string `json:"data" binding:"required"`
}

type ImageFormRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Style          string `json:"style" example:"classic"`
	Quality        string `json:"quality" example:"standard"`
	AspectRatio    string `json:"aspect_ratio" example:"1:1"`
	NumOutputs     int    `json:"num_outputs" example:"1"`
	ExpandPrompt   bool   `json:"expand_prompt"`
}

func (r ImageFormRequest) Form() generation.ImageForm {
	return generation.ImageForm{
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Style:          generation.Style(r.Style),
		Quality:        generation.Quality(r.Quality),
		AspectRatio:    r.AspectRatio,
		NumOutputs:     r.NumOutputs,
		ExpandPrompt:   r.ExpandPrompt,
	}
}

type VideoFormRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio" example:"16:9"`
	Resolution  string `json:"resolution" example:"1080p"`
}

type CompositionFormRequest struct {
	Directive string `json:"directive"`
}

type VideoCredentialRequest struct {
	// APIKey is optional; empty keeps the server's key.
	APIKey string `json:"api_key"`
}

type PreferencesRequest struct {
	DefaultStyle       string `json:"default_style" example:"classic"`
	DefaultQuality     string `json:"default_quality" example:"standard"`
	DefaultNumOutputs  int    `json:"default_num_outputs" example:"1"`
	DefaultAspectRatio string `json:"default_aspect_ratio" example:"1:1"`
}
