package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-artist-backend/internal/generation"
	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/media"
	"ai-artist-backend/internal/preferences"
	"ai-artist-backend/internal/workspace"
)

// ErrNotFound is returned when a creation id does not exist.
var ErrNotFound = errors.New("creation not found")

// Publisher pushes a saved creation to public storage.
type Publisher interface {
	Upload(filename, contentType string, data []byte) (path string, url string, err error)
}

// PublishResult describes an uploaded creation.
type PublishResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type Options struct {
	Store           *workspace.Store
	PreferencesPath string
	Preferences     preferences.Preferences
	Publisher       Publisher
	Image           *generation.ImageController
	Video           *generation.VideoController
	Decomposition   *generation.DecompositionController
	Composition     *generation.CompositionController
	Log             *logger.Logger
}

// Studio coordinates the controllers with the workspace, the user's
// preferences and the optional publisher. Saving never touches a
// controller's error slot.
type Studio struct {
	Image         *generation.ImageController
	Video         *generation.VideoController
	Decomposition *generation.DecompositionController
	Composition   *generation.CompositionController

	store     *workspace.Store
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time

	prefsMu   sync.Mutex
	prefsPath string
	prefs     preferences.Preferences
}

func NewStudio(opts Options) *Studio {
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	return &Studio{
		Image:         opts.Image,
		Video:         opts.Video,
		Decomposition: opts.Decomposition,
		Composition:   opts.Composition,
		store:         opts.Store,
		publisher:     opts.Publisher,
		log:           opts.Log,
		now:           time.Now,
		prefsPath:     opts.PreferencesPath,
		prefs:         opts.Preferences,
	}
}

// Capabilities lists the controller names in display order.
var Capabilities = []string{"image", "video", "decomposition", "composition"}

// Creations returns the workspace, newest first.
func (s *Studio) Creations(ctx context.Context) ([]workspace.Creation, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return list, nil
}

// Creation returns one saved creation.
func (s *Studio) Creation(ctx context.Context, id int64) (*workspace.Creation, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return c, nil
}

// SaveCreation stores a payload and returns the refreshed workspace.
func (s *Studio) SaveCreation(ctx context.Context, kind workspace.Kind, payload string) ([]workspace.Creation, error) {
	created, err := s.store.Add(ctx, kind, payload)
	if err != nil {
		return nil, storeError(err)
	}
	s.log.Info("creation saved", "id", created.ID, "kind", created.Kind)
	return s.Creations(ctx)
}

// SaveImage stores the index-th image result of capability.
func (s *Studio) SaveImage(ctx context.Context, capability string, index int) ([]workspace.Creation, error) {
	img, err := s.imageResult(capability, index)
	if err != nil {
		return nil, err
	}
	return s.SaveCreation(ctx, workspace.KindImage, img.DataURI())
}

// SaveVideo stores the current video result.
func (s *Studio) SaveVideo(ctx context.Context) ([]workspace.Creation, error) {
	v := s.Video.Result()
	if v == nil {
		return nil, notAvailable("There is no video to save.")
	}
	return s.SaveCreation(ctx, workspace.KindVideo, v.DataURI())
}

// SaveResult dispatches to SaveVideo or SaveImage.
func (s *Studio) SaveResult(ctx context.Context, capability string, index int) ([]workspace.Creation, error) {
	if capability == "video" {
		return s.SaveVideo(ctx)
	}
	return s.SaveImage(ctx, capability, index)
}

func (s *Studio) imageResult(capability string, index int) (media.Upload, error) {
	var results []media.Upload
	switch capability {
	case "image":
		results = s.Image.Results()
	case "composition":
		if r := s.Composition.Result(); r != nil {
			results = []media.Upload{*r}
		}
	case "decomposition":
		for _, el := range s.Decomposition.Elements() {
			results = append(results, el.Image)
		}
	default:
		return media.Upload{}, notAvailable(fmt.Sprintf("Unknown capability %q.", capability))
	}
	if index < 0 || index >= len(results) {
		return media.Upload{}, notAvailable(fmt.Sprintf("There is no result at position %d.", index))
	}
	return results[index], nil
}

// DeleteCreation removes a creation; a missing id is not an error.
func (s *Studio) DeleteCreation(ctx context.Context, id int64) ([]workspace.Creation, error) {
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, storeError(err)
	}
	return s.Creations(ctx)
}

// ClearWorkspace removes every creation.
func (s *Studio) ClearWorkspace(ctx context.Context) ([]workspace.Creation, error) {
	if err := s.store.Clear(ctx); err != nil {
		return nil, storeError(err)
	}
	s.log.Info("workspace cleared")
	return s.Creations(ctx)
}

// UseAsBase loads a saved image into the image controller's base slot.
func (s *Studio) UseAsBase(ctx context.Context, id int64) (generation.Input, error) {
	c, err := s.Creation(ctx, id)
	if err != nil {
		return generation.Input{}, err
	}
	if c.Kind != workspace.KindImage {
		return generation.Input{}, notAvailable("Only images can be edited.")
	}
	mimeType, data, err := media.ParseDataURI(c.Payload)
	if err != nil {
		return generation.Input{}, notAvailable("The saved image could not be read.")
	}
	name := media.DownloadName(string(c.Kind), mimeType, c.CreatedAt)
	return s.Image.AddInput(generation.RoleBase, media.FromBytes(name, mimeType, data))
}

// UseDecomposedElement loads an extracted object into the image controller's base slot.
func (s *Studio) UseDecomposedElement(index int) (generation.Input, error) {
	elements := s.Decomposition.Elements()
	if index < 0 || index >= len(elements) {
		return generation.Input{}, notAvailable(fmt.Sprintf("There is no element at position %d.", index))
	}
	el := elements[index]
	data, err := el.Image.Bytes()
	if err != nil {
		return generation.Input{}, notAvailable("The element image could not be read.")
	}
	return s.Image.AddInput(generation.RoleBase, media.FromBytes(el.Name+media.Extension(el.Image.MimeType), el.Image.MimeType, data))
}

// PublishingEnabled reports whether Publish can succeed.
func (s *Studio) PublishingEnabled() bool {
	return s.publisher != nil
}

// Publish uploads a saved creation under a timestamped name.
func (s *Studio) Publish(ctx context.Context, id int64) (*PublishResult, error) {
	if s.publisher == nil {
		return nil, notAvailable("Publishing is not configured.")
	}
	c, err := s.Creation(ctx, id)
	if err != nil {
		return nil, err
	}
	mimeType, data, err := media.ParseDataURI(c.Payload)
	if err != nil {
		return nil, notAvailable("The saved creation could not be read.")
	}
	path, url, err := s.publisher.Upload(media.DownloadName(string(c.Kind), mimeType, s.now()), mimeType, data)
	if err != nil {
		s.log.Error("publish failed", "id", id, "error", err.Error())
		return nil, &generation.Error{Kind: generation.KindTransient, Message: "The creation could not be published.", Err: err}
	}
	s.log.Info("creation published", "id", id, "path", path)
	return &PublishResult{Path: path, URL: url}, nil
}

// Preferences returns the current saved preferences.
func (s *Studio) Preferences() preferences.Preferences {
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	return s.prefs
}

// SavePreferences persists p and applies it to the image form.
func (s *Studio) SavePreferences(p preferences.Preferences) error {
	if err := p.Validate(); err != nil {
		return &generation.Error{Kind: generation.KindValidation, Message: err.Error(), Err: err}
	}

	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	if s.prefsPath != "" {
		if err := preferences.Save(s.prefsPath, p); err != nil {
			return &generation.Error{Kind: generation.KindStorage, Message: "Preferences could not be saved.", Err: err}
		}
	}
	s.prefs = p
	if err := s.Image.ResetToDefaults(p.Defaults()); err != nil {
		return err
	}
	s.log.Info("preferences saved")
	return nil
}

// Close disconnects progress subscribers and closes the store.
func (s *Studio) Close() error {
	s.Image.Close()
	s.Video.Close()
	s.Decomposition.Close()
	s.Composition.Close()
	return s.store.Close()
}

func notAvailable(msg string) error {
	return &generation.Error{Kind: generation.KindValidation, Message: msg}
}

// storeError maps store failures onto the error taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, workspace.ErrInvalidKind), errors.Is(err, workspace.ErrInvalidPayload):
		return &generation.Error{Kind: generation.KindValidation, Message: err.Error(), Err: err}
	}
	var se *workspace.StorageError
	if errors.As(err, &se) {
		return &generation.Error{Kind: generation.KindStorage, Message: "The workspace could not be updated.", Err: err}
	}
	return err
}
