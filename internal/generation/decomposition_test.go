package generation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/generation"
	"ai-artist-backend/internal/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(l ...string) func(out any) error {
	return func(out any) error {
		*out.(*[]string) = l
		return nil
	}
}

func TestDecompositionRequiresInput(t *testing.T) {
	b := &fakeBackend{}
	c := generation.NewDecompositionController(generation.Options{Backend: b})

	_, err := c.Generate(context.Background())
	require.Error(t, err)
	assert.Equal(t, generation.KindValidation, generation.KindOf(err))
	assert.Equal(t, "Upload an image to decompose.", err.Error())
	assert.Empty(t, b.Calls())
}

func TestDecompositionKeepsLabelOrder(t *testing.T) {
	b := &fakeBackend{
		json: labels(" girl ", "dog", "Dog", "", "tree"),
		images: func(_ int, prompt string) ([]media.Upload, error) {
			for _, l := range []string{"girl", "dog", "tree"} {
				if strings.Contains(prompt, `"`+l+`"`) {
					return []media.Upload{image(l)}, nil
				}
			}
			return nil, errors.New("unexpected label")
		},
	}
	c := generation.NewDecompositionController(generation.Options{Backend: b})
	_, err := c.SetInput(pngSource("scene.png"))
	require.NoError(t, err)

	elements, err := c.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, elements, 3)
	for i, name := range []string{"girl", "dog", "tree"} {
		assert.Equal(t, name, elements[i].Name)
		assert.Equal(t, name, elements[i].Image.Data)
	}
	assert.Equal(t, 3, b.count("images"))
	assert.Equal(t, elements, c.Elements())
}

func TestDecompositionPartialFailure(t *testing.T) {
	b := &fakeBackend{
		json: labels("cat", "lamp"),
		images: func(_ int, prompt string) ([]media.Upload, error) {
			if strings.Contains(prompt, `"lamp"`) {
				return nil, errors.New("timeout")
			}
			return []media.Upload{image("cat")}, nil
		},
	}
	c := generation.NewDecompositionController(generation.Options{Backend: b})
	_, err := c.SetInput(pngSource("scene.png"))
	require.NoError(t, err)

	elements, err := c.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "cat", elements[0].Name)
}

func TestDecompositionFailures(t *testing.T) {
	tests := []struct {
		name   string
		json   func(out any) error
		images func(int, string) ([]media.Upload, error)
		kind   generation.Kind
	}{
		{
			name: "no labels",
			json: labels(" ", ""),
			kind: generation.KindEmptyResult,
		},
		{
			name: "every extraction blocked",
			json: labels("cat", "dog"),
			images: func(int, string) ([]media.Upload, error) {
				return nil, &gemini.BlockedError{Reason: "SAFETY"}
			},
			kind: generation.KindBlocked,
		},
		{
			name:   "every extraction empty",
			json:   labels("cat"),
			images: func(int, string) ([]media.Upload, error) { return nil, nil },
			kind:   generation.KindEmptyResult,
		},
		{
			name: "analysis fails",
			json: func(any) error { return errors.New("bad json") },
			kind: generation.KindTransient,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{json: tt.json, images: tt.images}
			c := generation.NewDecompositionController(generation.Options{Backend: b})
			_, err := c.SetInput(pngSource("scene.png"))
			require.NoError(t, err)

			_, err = c.Generate(context.Background())
			assert.Equal(t, tt.kind, generation.KindOf(err))
			assert.Empty(t, c.Elements())
		})
	}
}

func TestDecompositionSetInputReplacesAndClearsElements(t *testing.T) {
	b := &fakeBackend{json: labels("cat")}
	c := generation.NewDecompositionController(generation.Options{Backend: b})
	_, err := c.SetInput(pngSource("first.png"))
	require.NoError(t, err)
	_, err = c.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Elements(), 1)

	_, err = c.SetInput(pngSource("second.png"))
	require.NoError(t, err)

	snap := c.Snapshot()
	require.NotNil(t, snap.Input)
	assert.Equal(t, "second.png", snap.Input.Name)
	assert.Empty(t, snap.Elements)
}

func TestCompositionRequiresTwoInputs(t *testing.T) {
	b := &fakeBackend{}
	c := generation.NewCompositionController(generation.Options{Backend: b})
	_, err := c.AddInput(pngSource("one.png"))
	require.NoError(t, err)

	_, err = c.Generate(context.Background())
	assert.Equal(t, generation.KindValidation, generation.KindOf(err))
	assert.Empty(t, b.Calls())
}

func TestCompositionUsesDefaultDirective(t *testing.T) {
	b := &fakeBackend{}
	c := generation.NewCompositionController(generation.Options{Backend: b})
	for _, n := range []string{"a.png", "b.png", "c.png"} {
		_, err := c.AddInput(pngSource(n))
		require.NoError(t, err)
	}

	result, err := c.Generate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 3, calls[0].Images)
	assert.Contains(t, calls[0].Prompt, generation.DefaultCompositionDirective)

	c.SetDirective("put the cat on the left")
	_, err = c.Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, b.Calls()[1].Prompt, "put the cat on the left")
	assert.Equal(t, "put the cat on the left", c.Snapshot().Directive)
}

func TestCompositionEmptyResult(t *testing.T) {
	b := &fakeBackend{images: func(int, string) ([]media.Upload, error) { return nil, nil }}
	c := generation.NewCompositionController(generation.Options{Backend: b})
	for _, n := range []string{"a.png", "b.png"} {
		_, err := c.AddInput(pngSource(n))
		require.NoError(t, err)
	}

	_, err := c.Generate(context.Background())
	assert.Equal(t, generation.KindEmptyResult, generation.KindOf(err))
	assert.Nil(t, c.Result())
}

func TestCompositionInputLimit(t *testing.T) {
	c := generation.NewCompositionController(generation.Options{Backend: &fakeBackend{}})
	for i := 0; i < generation.MaxCompositionInputs; i++ {
		_, err := c.AddInput(pngSource("x.png"))
		require.NoError(t, err)
	}
	_, err := c.AddInput(pngSource("x.png"))
	assert.ErrorIs(t, err, generation.ErrTooManyInputs)
}
