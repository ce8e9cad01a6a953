package generation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"ai-artist-backend/internal/media"
)

// Element is one object isolated from a decomposed image.
type Element struct {
	Name  string       `json:"name"`
	Image media.Upload `json:"image"`
}

type DecompositionSnapshot struct {
	Status
	Input    *Input    `json:"input,omitempty"`
	Elements []Element `json:"elements"`
}

// DecompositionController splits one image into its named objects: an
// analysis call lists labels, then each label is extracted independently.
type DecompositionController struct {
	controller

	backend Backend
	models  Models
	inputs  *inputSet

	elements []Element
}

func NewDecompositionController(opts Options) *DecompositionController {
	c := &DecompositionController{
		backend: opts.Backend,
		models:  opts.Models.withDefaults(),
		inputs:  newInputSet(map[Role]int{RoleInput: 1}),
	}
	c.init("decomposition", opts.Log)
	return c
}

// SetInput replaces the source image and discards elements extracted from the previous one.
func (c *DecompositionController) SetInput(src media.Source) (Input, error) {
	in, err := c.inputs.add(RoleInput, src)
	if err != nil {
		return Input{}, err
	}
	c.mu.Lock()
	c.elements = nil
	c.err = nil
	c.mu.Unlock()
	return in, nil
}

func (c *DecompositionController) ClearInput() {
	c.inputs.clear(RoleInput)
	c.mu.Lock()
	c.elements = nil
	c.mu.Unlock()
}

func (c *DecompositionController) Elements() []Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Element(nil), c.elements...)
}

func (c *DecompositionController) Snapshot() DecompositionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := DecompositionSnapshot{
		Status:   c.statusLocked(),
		Elements: append([]Element{}, c.elements...),
	}
	if in := c.inputs.list(RoleInput); len(in) > 0 {
		snap.Input = &in[0]
	}
	return snap
}

type decompositionJob struct {
	runID   string
	backend Backend
	input   []Input
}

func (c *DecompositionController) prepare() (*decompositionJob, error) {
	var job decompositionJob
	runID, err := c.begin(func() *Error {
		job = decompositionJob{backend: c.backend, input: c.inputs.list(RoleInput)}
		if len(job.input) == 0 {
			return validationError("Upload an image to decompose.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	job.runID = runID
	return &job, nil
}

func (c *DecompositionController) Generate(ctx context.Context) ([]Element, error) {
	job, err := c.prepare()
	if err != nil {
		return nil, err
	}
	return c.run(ctx, job)
}

func (c *DecompositionController) Start(ctx context.Context) (string, error) {
	job, err := c.prepare()
	if err != nil {
		return "", err
	}
	go func() { _, _ = c.run(ctx, job) }()
	return job.runID, nil
}

func (c *DecompositionController) run(ctx context.Context, job *decompositionJob) ([]Element, error) {
	elements, err := c.execute(ctx, job)
	if gerr := c.finish(job.runID, err, "Failed to decompose the image", func(gerr *Error) {
		if gerr == nil {
			c.elements = elements
		}
	}); gerr != nil {
		return nil, gerr
	}
	return elements, nil
}

func (c *DecompositionController) execute(ctx context.Context, job *decompositionJob) ([]Element, error) {
	source, err := encodeInputs(ctx, job.input)
	if err != nil {
		return nil, inputError(err)
	}

	c.report(job.runID, "Identifying the objects in the image...")
	var raw []string
	if err := job.backend.GenerateJSON(ctx, c.models.Text, decompositionAnalysisPrompt, source, &raw); err != nil {
		return nil, err
	}
	labels := cleanLabels(raw)
	if len(labels) == 0 {
		return nil, &Error{Kind: KindEmptyResult, Message: "No distinct objects were found in the image."}
	}
	c.log.Info("objects identified", "run_id", job.runID, "count", len(labels))

	c.report(job.runID, fmt.Sprintf("Extracting %d objects...", len(labels)))
	var done atomic.Int32
	outcomes := settleAll(ctx, len(labels), func(ctx context.Context, i int) (media.Upload, error) {
		images, err := job.backend.GenerateImages(ctx, c.models.ImageEdit, extractionPrompt(labels[i]), source)
		n := done.Add(1)
		c.report(job.runID, fmt.Sprintf("Extracted %d of %d objects...", n, len(labels)))
		if err != nil {
			return media.Upload{}, err
		}
		if len(images) == 0 {
			return media.Upload{}, errNoImage
		}
		return images[0], nil
	})

	var (
		elements []Element
		errs     []error
	)
	for i, o := range outcomes {
		if o.err != nil {
			c.log.Warn("object extraction failed", "run_id", job.runID, "label", labels[i], "error", o.err.Error())
			errs = append(errs, o.err)
			continue
		}
		elements = append(elements, Element{Name: labels[i], Image: o.value})
	}
	if len(elements) == 0 {
		return nil, aggregateFailure(errs, "None of the objects could be extracted.")
	}
	return elements, nil
}

// cleanLabels trims, drops empties and removes case-insensitive duplicates,
// keeping first-seen order.
func cleanLabels(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
