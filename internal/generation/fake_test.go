package generation_test

import (
	"context"
	"errors"
	"sync"

	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/media"
)

// pngBytes is the PNG signature followed by padding; enough for sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngSource(name string) media.Source {
	return media.FromBytes(name, "image/png", pngBytes)
}

func image(tag string) media.Upload {
	return media.Upload{MimeType: "image/png", Data: tag}
}

type call struct {
	Method string
	Model  string
	Prompt string
	Images int
}

// fakeBackend records every call and delegates to optional hooks. Unset hooks
// return a single image tagged with the method name.
type fakeBackend struct {
	mu    sync.Mutex
	calls []call

	text     func(prompt string) (string, error)
	json     func(out any) error
	images   func(n int, prompt string) ([]media.Upload, error)
	imagen   func(n int) ([]media.Upload, error)
	submit   func(req gemini.VideoRequest) (*gemini.Operation, error)
	poll     func(n int) (*gemini.Operation, error)
	download func(uri string) ([]byte, string, error)

	lastVideo gemini.VideoRequest
	polls     int
}

func (f *fakeBackend) record(c call) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	n := 0
	for _, prev := range f.calls {
		if prev.Method == c.Method {
			n++
		}
	}
	return n - 1
}

func (f *fakeBackend) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeBackend) count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *fakeBackend) GenerateText(_ context.Context, model, prompt string, images []media.Upload) (string, error) {
	f.record(call{Method: "text", Model: model, Prompt: prompt, Images: len(images)})
	if f.text != nil {
		return f.text(prompt)
	}
	return "text", nil
}

func (f *fakeBackend) GenerateJSON(_ context.Context, model, prompt string, images []media.Upload, out any) error {
	f.record(call{Method: "json", Model: model, Prompt: prompt, Images: len(images)})
	if f.json != nil {
		return f.json(out)
	}
	return errors.New("no json hook")
}

func (f *fakeBackend) GenerateImages(_ context.Context, model, prompt string, images []media.Upload) ([]media.Upload, error) {
	n := f.record(call{Method: "images", Model: model, Prompt: prompt, Images: len(images)})
	if f.images != nil {
		return f.images(n, prompt)
	}
	return []media.Upload{image("images")}, nil
}

func (f *fakeBackend) Imagen(_ context.Context, model, prompt, _ string) ([]media.Upload, error) {
	n := f.record(call{Method: "imagen", Model: model, Prompt: prompt})
	if f.imagen != nil {
		return f.imagen(n)
	}
	return []media.Upload{image("imagen")}, nil
}

func (f *fakeBackend) SubmitVideo(_ context.Context, req gemini.VideoRequest) (*gemini.Operation, error) {
	f.record(call{Method: "submit", Model: req.Model, Prompt: req.Prompt, Images: len(req.References)})
	f.mu.Lock()
	f.lastVideo = req
	f.mu.Unlock()
	if f.submit != nil {
		return f.submit(req)
	}
	return &gemini.Operation{Name: "operations/1"}, nil
}

func (f *fakeBackend) PollVideo(_ context.Context, name string) (*gemini.Operation, error) {
	n := f.record(call{Method: "poll", Prompt: name})
	if f.poll != nil {
		return f.poll(n)
	}
	return &gemini.Operation{Name: name, Done: true, VideoURI: "https://example.test/video.mp4"}, nil
}

func (f *fakeBackend) Download(_ context.Context, uri string) ([]byte, string, error) {
	f.record(call{Method: "download", Prompt: uri})
	if f.download != nil {
		return f.download(uri)
	}
	return []byte("video-bytes"), "video/mp4", nil
}
