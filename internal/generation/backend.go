package generation

import (
	"context"

	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/media"
)

// Backend is the external generative service. *gemini.Client implements it.
type Backend interface {
	GenerateText(ctx context.Context, model, prompt string, images []media.Upload) (string, error)
	GenerateJSON(ctx context.Context, model, prompt string, images []media.Upload, out any) error
	GenerateImages(ctx context.Context, model, prompt string, images []media.Upload) ([]media.Upload, error)
	Imagen(ctx context.Context, model, prompt, aspectRatio string) ([]media.Upload, error)
	SubmitVideo(ctx context.Context, req gemini.VideoRequest) (*gemini.Operation, error)
	PollVideo(ctx context.Context, name string) (*gemini.Operation, error)
	Download(ctx context.Context, uri string) ([]byte, string, error)
}

var _ Backend = (*gemini.Client)(nil)

// Models names the remote model used for each kind of call.
type Models struct {
	Text      string
	ImageEdit string
	Imagen    string
	VeoFast   string
	VeoMulti  string
}

func DefaultModels() Models {
	return Models{
		Text:      "gemini-2.5-flash",
		ImageEdit: "gemini-2.5-flash-image",
		Imagen:    "imagen-4.0-generate-001",
		VeoFast:   "veo-3.1-fast-generate-preview",
		VeoMulti:  "veo-3.1-generate-preview",
	}
}

func (m Models) withDefaults() Models {
	d := DefaultModels()
	if m.Text == "" {
		m.Text = d.Text
	}
	if m.ImageEdit == "" {
		m.ImageEdit = d.ImageEdit
	}
	if m.Imagen == "" {
		m.Imagen = d.Imagen
	}
	if m.VeoFast == "" {
		m.VeoFast = d.VeoFast
	}
	if m.VeoMulti == "" {
		m.VeoMulti = d.VeoMulti
	}
	return m
}
