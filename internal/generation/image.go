package generation

import (
	"context"
	"fmt"
	"strings"

	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/media"
)

// Options wires a controller to its collaborators.
type Options struct {
	Backend Backend
	Models  Models
	Log     *logger.Logger
}

// Defaults are the user's preferred starting values for image requests.
type Defaults struct {
	Style       Style   `json:"style"`
	Quality     Quality `json:"quality"`
	NumOutputs  int     `json:"num_outputs"`
	AspectRatio string  `json:"aspect_ratio"`
}

// FactoryDefaults is the first style, standard quality, one square image.
func FactoryDefaults() Defaults {
	return Defaults{
		Style:       Styles[0],
		Quality:     QualityStandard,
		NumOutputs:  1,
		AspectRatio: "1:1",
	}
}

// Validate reports the first out-of-range field.
func (d Defaults) Validate() error {
	if _, err := ParseStyle(string(d.Style)); err != nil {
		return err
	}
	if _, err := ParseQuality(string(d.Quality)); err != nil {
		return err
	}
	if d.NumOutputs < MinOutputs || d.NumOutputs > MaxOutputs {
		return fmt.Errorf("number of outputs must be between %d and %d, got %d", MinOutputs, MaxOutputs, d.NumOutputs)
	}
	if !ValidImageAspectRatio(d.AspectRatio) {
		return fmt.Errorf("unsupported aspect ratio %q", d.AspectRatio)
	}
	return nil
}

// ImageForm holds the editable fields of an image request.
type ImageForm struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Style          Style   `json:"style"`
	Quality        Quality `json:"quality"`
	AspectRatio    string  `json:"aspect_ratio"`
	NumOutputs     int     `json:"num_outputs"`
	ExpandPrompt   bool    `json:"expand_prompt"`
}

func (f ImageForm) defaults() Defaults {
	return Defaults{Style: f.Style, Quality: f.Quality, NumOutputs: f.NumOutputs, AspectRatio: f.AspectRatio}
}

// ImageSnapshot is the full observable state of the image controller.
type ImageSnapshot struct {
	Status
	Form           ImageForm      `json:"form"`
	OriginalPrompt string         `json:"original_prompt,omitempty"`
	Base           []Input        `json:"base_images"`
	Reference      []Input        `json:"reference_images"`
	Results        []media.Upload `json:"results"`
}

const (
	MaxBaseImages      = 5
	MaxReferenceImages = 10
)

// ImageController turns a prompt plus optional base and reference images into
// one to four still images.
type ImageController struct {
	controller

	backend Backend
	models  Models
	inputs  *inputSet

	form           ImageForm
	originalPrompt string
	results        []media.Upload
}

func NewImageController(opts Options, defaults Defaults) *ImageController {
	if defaults.Validate() != nil {
		defaults = FactoryDefaults()
	}
	c := &ImageController{
		backend: opts.Backend,
		models:  opts.Models.withDefaults(),
		inputs:  newInputSet(map[Role]int{RoleBase: MaxBaseImages, RoleReference: MaxReferenceImages}),
		form: ImageForm{
			Style:       defaults.Style,
			Quality:     defaults.Quality,
			AspectRatio: defaults.AspectRatio,
			NumOutputs:  defaults.NumOutputs,
		},
	}
	c.init("image", opts.Log)
	return c
}

// SetForm replaces the editable fields after validating them.
func (c *ImageController) SetForm(f ImageForm) error {
	if err := f.defaults().Validate(); err != nil {
		return validationError(err.Error())
	}
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
	return nil
}

func (c *ImageController) Form() ImageForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// ResetToDefaults restores style, quality, output count and aspect ratio.
func (c *ImageController) ResetToDefaults(d Defaults) error {
	if err := d.Validate(); err != nil {
		return validationError(err.Error())
	}
	c.mu.Lock()
	c.form.Style = d.Style
	c.form.Quality = d.Quality
	c.form.NumOutputs = d.NumOutputs
	c.form.AspectRatio = d.AspectRatio
	c.mu.Unlock()
	return nil
}

// RevertPrompt restores the prompt typed before expansion. It reports
// whether there was anything to revert.
func (c *ImageController) RevertPrompt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.originalPrompt == "" {
		return false
	}
	c.form.Prompt = c.originalPrompt
	c.originalPrompt = ""
	return true
}

func (c *ImageController) AddInput(role Role, src media.Source) (Input, error) {
	return c.inputs.add(role, src)
}

// AddInputs attaches srcs together; on error none of them is kept.
func (c *ImageController) AddInputs(role Role, srcs ...media.Source) ([]Input, error) {
	return c.inputs.addAll(role, srcs)
}

func (c *ImageController) RemoveInput(role Role, id string) bool {
	return c.inputs.remove(role, id)
}

func (c *ImageController) ClearInputs(role Role) {
	c.inputs.clear(role)
}

func (c *ImageController) Inputs(role Role) []Input {
	return c.inputs.list(role)
}

func (c *ImageController) Results() []media.Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]media.Upload(nil), c.results...)
}

func (c *ImageController) Snapshot() ImageSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ImageSnapshot{
		Status:         c.statusLocked(),
		Form:           c.form,
		OriginalPrompt: c.originalPrompt,
		Base:           c.inputs.list(RoleBase),
		Reference:      c.inputs.list(RoleReference),
		Results:        append([]media.Upload{}, c.results...),
	}
}

type imageJob struct {
	runID   string
	backend Backend
	form    ImageForm
	expand  bool
	base    []Input
	refs    []Input
}

func (c *ImageController) prepare() (*imageJob, error) {
	var job imageJob
	runID, err := c.begin(func() *Error {
		job = imageJob{
			backend: c.backend,
			form:    c.form,
			expand:  c.form.ExpandPrompt && strings.TrimSpace(c.form.Prompt) != "" && c.originalPrompt == "",
			base:    c.inputs.list(RoleBase),
			refs:    c.inputs.list(RoleReference),
		}
		if strings.TrimSpace(job.form.Prompt) == "" && len(job.base) == 0 && len(job.refs) == 0 {
			return validationError("Enter a prompt or upload an image.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	job.runID = runID
	return &job, nil
}

// Generate validates and runs a request, blocking until it settles.
func (c *ImageController) Generate(ctx context.Context) ([]media.Upload, error) {
	job, err := c.prepare()
	if err != nil {
		return nil, err
	}
	return c.run(ctx, job)
}

// Start validates synchronously and runs the request in the background.
// Progress and completion are observable through Events and Snapshot.
func (c *ImageController) Start(ctx context.Context) (string, error) {
	job, err := c.prepare()
	if err != nil {
		return "", err
	}
	go func() { _, _ = c.run(ctx, job) }()
	return job.runID, nil
}

func (c *ImageController) run(ctx context.Context, job *imageJob) ([]media.Upload, error) {
	images, err := c.execute(ctx, job)
	if gerr := c.finish(job.runID, err, "Failed to generate art", func(gerr *Error) {
		if gerr == nil {
			c.results = images
		}
	}); gerr != nil {
		return nil, gerr
	}
	return images, nil
}

func (c *ImageController) execute(ctx context.Context, job *imageJob) ([]media.Upload, error) {
	form := job.form
	prompt := form.Prompt

	if job.expand {
		c.report(job.runID, "Expanding the prompt...")
		expanded, err := job.backend.GenerateText(ctx, c.models.Text, expansionPrompt(prompt), nil)
		if err != nil {
			return nil, fmt.Errorf("prompt expansion failed: %w", err)
		}
		if expanded == "" {
			return nil, &Error{Kind: KindEmptyResult, Message: "The expanded prompt was empty."}
		}
		c.mu.Lock()
		c.originalPrompt = prompt
		c.form.Prompt = expanded
		c.mu.Unlock()
		prompt = expanded
	}

	base, err := encodeInputs(ctx, job.base)
	if err != nil {
		return nil, inputError(err)
	}
	refs, err := encodeInputs(ctx, job.refs)
	if err != nil {
		return nil, inputError(err)
	}

	var call func(ctx context.Context, i int) ([]media.Upload, error)
	if len(base) == 0 {
		analysis := ""
		if len(refs) > 0 {
			c.report(job.runID, "Analyzing the reference images...")
			analysis, err = job.backend.GenerateText(ctx, c.models.Text, referenceAnalysisPrompt, refs)
			if err != nil {
				return nil, err
			}
			if analysis == "" {
				return nil, &Error{Kind: KindEmptyResult, Message: "The reference images could not be analyzed."}
			}
			c.report(job.runID, "Drawing from the analysis...")
		} else {
			c.report(job.runID, "Drawing from the prompt...")
		}
		p := imagenPrompt(form.Style, form.Quality, prompt, analysis, form.NegativePrompt)
		call = func(ctx context.Context, _ int) ([]media.Upload, error) {
			return job.backend.Imagen(ctx, c.models.Imagen, p, form.AspectRatio)
		}
	} else {
		if len(refs) > 0 {
			c.report(job.runID, "Combining the images...")
		} else {
			c.report(job.runID, "Editing the image...")
		}
		p := remakePrompt(form.Style, form.Quality, form.AspectRatio, prompt, form.NegativePrompt, len(refs) > 0)
		images := append(append([]media.Upload{}, base...), refs...)
		call = func(ctx context.Context, _ int) ([]media.Upload, error) {
			return job.backend.GenerateImages(ctx, c.models.ImageEdit, p, images)
		}
	}

	if form.NumOutputs > 1 {
		c.report(job.runID, fmt.Sprintf("Generating %d images...", form.NumOutputs))
	}
	outcomes := settleAll(ctx, form.NumOutputs, call)
	return collectImages(c.log, outcomes, "No valid images were returned. Every generation may have failed.")
}
