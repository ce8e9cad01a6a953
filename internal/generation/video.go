package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/media"
)

const (
	MaxVideoReferences = 3

	multiImageAspectRatio = "16:9"
	multiImageResolution  = "720p"
)

var (
	VideoAspectRatios = []string{"16:9", "9:16"}
	VideoResolutions  = []string{"720p", "1080p"}
)

var videoCheckpoints = []string{
	"Composing the scene... this can take a few minutes.",
	"Almost there... rendering the final cut.",
}

const longWaitMessage = "Generation is taking longer than expected..."

// VideoForm holds the user's video selections.
type VideoForm struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
}

// VideoSettings is what will actually be sent. With more than one reference
// image the aspect ratio and resolution are forced and Locked is set; the
// user's own selection is kept in the form and applies again once the
// override lifts.
type VideoSettings struct {
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
	Locked      bool   `json:"locked"`
}

func effectiveVideoSettings(form VideoForm, references int) VideoSettings {
	if references > 1 {
		return VideoSettings{AspectRatio: multiImageAspectRatio, Resolution: multiImageResolution, Locked: true}
	}
	return VideoSettings{AspectRatio: form.AspectRatio, Resolution: form.Resolution}
}

// VideoSnapshot is the full observable state of the video controller.
type VideoSnapshot struct {
	Status
	Form            VideoForm     `json:"form"`
	Settings        VideoSettings `json:"settings"`
	CredentialReady bool          `json:"credential_ready"`
	References      []Input       `json:"reference_images"`
	Result          *media.Upload `json:"result,omitempty"`
}

// VideoOptions configures polling and credential handling.
type VideoOptions struct {
	Options
	PollInterval   time.Duration
	CheckpointHold time.Duration
	// Credentials builds a backend bound to a user-selected key. When nil the
	// default backend is used for every key.
	Credentials func(key string) Backend
}

// VideoController drives long-running video jobs: submit, poll, download.
type VideoController struct {
	controller

	backend        Backend
	credentials    func(key string) Backend
	models         Models
	inputs         *inputSet
	pollInterval   time.Duration
	checkpointHold time.Duration

	form            VideoForm
	credentialReady bool
	result          *media.Upload
}

func NewVideoController(opts VideoOptions) *VideoController {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	c := &VideoController{
		backend:        opts.Backend,
		credentials:    opts.Credentials,
		models:         opts.Models.withDefaults(),
		inputs:         newInputSet(map[Role]int{RoleReference: MaxVideoReferences}),
		pollInterval:   opts.PollInterval,
		checkpointHold: opts.CheckpointHold,
		form:           VideoForm{AspectRatio: "16:9", Resolution: "1080p"},
	}
	c.init("video", opts.Log)
	return c
}

func validVideoForm(f VideoForm) error {
	if !contains(VideoAspectRatios, f.AspectRatio) {
		return fmt.Errorf("unsupported video aspect ratio %q", f.AspectRatio)
	}
	if !contains(VideoResolutions, f.Resolution) {
		return fmt.Errorf("unsupported video resolution %q", f.Resolution)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (c *VideoController) SetForm(f VideoForm) error {
	if err := validVideoForm(f); err != nil {
		return validationError(err.Error())
	}
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
	return nil
}

func (c *VideoController) Form() VideoForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Settings returns the aspect ratio and resolution the next run will use.
func (c *VideoController) Settings() VideoSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return effectiveVideoSettings(c.form, c.inputs.count(RoleReference))
}

// SelectCredential marks a key as chosen. An empty key keeps the default backend.
func (c *VideoController) SelectCredential(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key != "" && c.credentials != nil {
		c.backend = c.credentials(key)
	}
	c.credentialReady = true
	c.log.Info("video credential selected")
}

func (c *VideoController) CredentialReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credentialReady
}

func (c *VideoController) AddInput(role Role, src media.Source) (Input, error) {
	return c.inputs.add(role, src)
}

// AddInputs attaches srcs together; on error none of them is kept.
func (c *VideoController) AddInputs(role Role, srcs ...media.Source) ([]Input, error) {
	return c.inputs.addAll(role, srcs)
}

func (c *VideoController) RemoveInput(role Role, id string) bool {
	return c.inputs.remove(role, id)
}

func (c *VideoController) ClearInputs(role Role) {
	c.inputs.clear(role)
}

func (c *VideoController) Inputs(role Role) []Input {
	return c.inputs.list(role)
}

func (c *VideoController) Result() *media.Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	r := *c.result
	return &r
}

func (c *VideoController) Snapshot() VideoSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := c.inputs.list(RoleReference)
	snap := VideoSnapshot{
		Status:          c.statusLocked(),
		Form:            c.form,
		Settings:        effectiveVideoSettings(c.form, len(refs)),
		CredentialReady: c.credentialReady,
		References:      refs,
	}
	if c.result != nil {
		r := *c.result
		snap.Result = &r
	}
	return snap
}

type videoJob struct {
	runID   string
	backend Backend
	form    VideoForm
	refs    []Input
}

func (c *VideoController) prepare() (*videoJob, error) {
	var job videoJob
	runID, err := c.begin(func() *Error {
		if !c.credentialReady {
			return &Error{Kind: KindCredentialRequired, Message: "Select an API key to continue with video generation."}
		}
		job = videoJob{backend: c.backend, form: c.form, refs: c.inputs.list(RoleReference)}
		if len(job.refs) == 0 && strings.TrimSpace(job.form.Prompt) == "" {
			return validationError("Upload a reference image or enter a scenario to generate a video.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	job.runID = runID
	return &job, nil
}

// Generate validates and runs a video job, blocking until it settles. There
// is no client-side deadline; only ctx cancellation stops the poll loop.
func (c *VideoController) Generate(ctx context.Context) (*media.Upload, error) {
	job, err := c.prepare()
	if err != nil {
		return nil, err
	}
	return c.run(ctx, job)
}

// Start validates synchronously and runs the job in the background.
func (c *VideoController) Start(ctx context.Context) (string, error) {
	job, err := c.prepare()
	if err != nil {
		return "", err
	}
	go func() { _, _ = c.run(ctx, job) }()
	return job.runID, nil
}

func (c *VideoController) run(ctx context.Context, job *videoJob) (*media.Upload, error) {
	video, err := c.execute(ctx, job)
	gerr := c.finish(job.runID, err, "Failed to generate the video", func(gerr *Error) {
		switch {
		case gerr == nil:
			c.result = video
		case gerr.Kind == KindCredentialExpired:
			c.credentialReady = false
		}
	})
	if gerr != nil {
		return nil, gerr
	}
	return video, nil
}

func (c *VideoController) execute(ctx context.Context, job *videoJob) (*media.Upload, error) {
	refs, err := encodeInputs(ctx, job.refs)
	if err != nil {
		return nil, inputError(err)
	}

	settings := effectiveVideoSettings(job.form, len(refs))
	model := c.models.VeoFast
	if settings.Locked {
		model = c.models.VeoMulti
	}
	prompt := job.form.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultVideoPrompt
	}

	op, err := job.backend.SubmitVideo(ctx, gemini.VideoRequest{
		Model:       model,
		Prompt:      prompt,
		References:  refs,
		AspectRatio: settings.AspectRatio,
		Resolution:  settings.Resolution,
	})
	if err != nil {
		return nil, err
	}
	c.report(job.runID, "The model is analyzing the prompt...")

	checkpoint := 0
	for !op.Done {
		if err := sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		name := op.Name
		op, err = job.backend.PollVideo(ctx, name)
		if err != nil {
			return nil, err
		}
		if op.Done {
			break
		}
		if checkpoint < len(videoCheckpoints) {
			c.report(job.runID, videoCheckpoints[checkpoint])
			checkpoint++
			if err := sleep(ctx, c.checkpointHold); err != nil {
				return nil, err
			}
		} else {
			c.report(job.runID, longWaitMessage)
		}
	}

	if op.Error != "" {
		return nil, fmt.Errorf("video operation failed: %s", op.Error)
	}
	if op.VideoURI == "" {
		return nil, &Error{Kind: KindEmptyResult, Message: "The generated video URI could not be found."}
	}

	c.report(job.runID, "Fetching the video...")
	data, mimeType, err := job.backend.Download(ctx, op.VideoURI)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &Error{Kind: KindEmptyResult, Message: "The downloaded video was empty."}
	}
	return &media.Upload{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
