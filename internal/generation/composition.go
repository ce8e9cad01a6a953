package generation

import (
	"context"

	"ai-artist-backend/internal/media"
)

const (
	MinCompositionInputs = 2
	MaxCompositionInputs = 12
)

type CompositionSnapshot struct {
	Status
	Directive string        `json:"directive"`
	Inputs    []Input       `json:"inputs"`
	Result    *media.Upload `json:"result,omitempty"`
}

// CompositionController merges several images into one in a single request.
type CompositionController struct {
	controller

	backend Backend
	models  Models
	inputs  *inputSet

	directive string
	result    *media.Upload
}

func NewCompositionController(opts Options) *CompositionController {
	c := &CompositionController{
		backend: opts.Backend,
		models:  opts.Models.withDefaults(),
		inputs:  newInputSet(map[Role]int{RoleInput: MaxCompositionInputs}),
	}
	c.init("composition", opts.Log)
	return c
}

// SetDirective sets the optional arrangement instruction.
func (c *CompositionController) SetDirective(d string) {
	c.mu.Lock()
	c.directive = d
	c.mu.Unlock()
}

func (c *CompositionController) AddInput(src media.Source) (Input, error) {
	return c.inputs.add(RoleInput, src)
}

func (c *CompositionController) AddInputs(srcs ...media.Source) ([]Input, error) {
	return c.inputs.addAll(RoleInput, srcs)
}

func (c *CompositionController) RemoveInput(id string) bool {
	return c.inputs.remove(RoleInput, id)
}

func (c *CompositionController) ClearInputs() {
	c.inputs.clear(RoleInput)
}

func (c *CompositionController) Result() *media.Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	r := *c.result
	return &r
}

func (c *CompositionController) Snapshot() CompositionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := CompositionSnapshot{
		Status:    c.statusLocked(),
		Directive: c.directive,
		Inputs:    c.inputs.list(RoleInput),
	}
	if c.result != nil {
		r := *c.result
		snap.Result = &r
	}
	return snap
}

type compositionJob struct {
	runID     string
	backend   Backend
	directive string
	inputs    []Input
}

func (c *CompositionController) prepare() (*compositionJob, error) {
	var job compositionJob
	runID, err := c.begin(func() *Error {
		job = compositionJob{backend: c.backend, directive: c.directive, inputs: c.inputs.list(RoleInput)}
		if len(job.inputs) < MinCompositionInputs {
			return validationError("Upload at least two images to compose.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	job.runID = runID
	return &job, nil
}

func (c *CompositionController) Generate(ctx context.Context) (*media.Upload, error) {
	job, err := c.prepare()
	if err != nil {
		return nil, err
	}
	return c.run(ctx, job)
}

func (c *CompositionController) Start(ctx context.Context) (string, error) {
	job, err := c.prepare()
	if err != nil {
		return "", err
	}
	go func() { _, _ = c.run(ctx, job) }()
	return job.runID, nil
}

func (c *CompositionController) run(ctx context.Context, job *compositionJob) (*media.Upload, error) {
	result, err := c.execute(ctx, job)
	if gerr := c.finish(job.runID, err, "Failed to compose the images", func(gerr *Error) {
		if gerr == nil {
			c.result = result
		}
	}); gerr != nil {
		return nil, gerr
	}
	return result, nil
}

func (c *CompositionController) execute(ctx context.Context, job *compositionJob) (*media.Upload, error) {
	images, err := encodeInputs(ctx, job.inputs)
	if err != nil {
		return nil, inputError(err)
	}

	c.report(job.runID, "Composing the images...")
	out, err := job.backend.GenerateImages(ctx, c.models.ImageEdit, compositionPrompt(job.directive), images)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &Error{Kind: KindEmptyResult, Message: "The AI did not return a composed image."}
	}
	return &out[0], nil
}
