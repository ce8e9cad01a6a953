package generation

import (
	"context"
	"errors"
	"fmt"

	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/media"

	"golang.org/x/sync/errgroup"
)

// maxParallel bounds sub-requests in flight for one run.
const maxParallel = 4

type outcome[T any] struct {
	value T
	err   error
}

// settleAll runs fn for 0..n-1 concurrently and waits for every call. A
// failure does not cancel its siblings. Outcomes are positional.
func settleAll[T any](ctx context.Context, n int, fn func(ctx context.Context, i int) (T, error)) []outcome[T] {
	out := make([]outcome[T], n)
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			v, err := fn(ctx, i)
			out[i] = outcome[T]{value: v, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

var errNoImage = errors.New("response contained no image")

// aggregateFailure picks the error reported when every sub-request failed.
// A policy block wins over a rejected credential, which wins over an empty result.
func aggregateFailure(errs []error, emptyMsg string) error {
	var (
		blocked    *gemini.BlockedError
		credential error
		first      error
	)
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		var b *gemini.BlockedError
		if blocked == nil && errors.As(err, &b) {
			blocked = b
		}
		if credential == nil && errors.Is(err, gemini.ErrCredentialRejected) {
			credential = err
		}
	}
	switch {
	case blocked != nil:
		return blocked
	case credential != nil:
		return credential
	}
	return &Error{Kind: KindEmptyResult, Message: emptyMsg, Err: first}
}

// collectImages concatenates successful outputs in request order and logs
// each failed or empty sub-request.
func collectImages(log *logger.Logger, outcomes []outcome[[]media.Upload], emptyMsg string) ([]media.Upload, error) {
	var (
		images []media.Upload
		errs   []error
	)
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			log.Warn("output request failed", "index", i, "error", o.err.Error())
			errs = append(errs, o.err)
		case len(o.value) == 0:
			log.Warn("output request returned no image", "index", i)
			errs = append(errs, errNoImage)
		default:
			images = append(images, o.value...)
		}
	}
	if len(images) == 0 {
		return nil, aggregateFailure(errs, emptyMsg)
	}
	return images, nil
}

func inputError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Kind: KindValidation, Message: fmt.Sprintf("An input image could not be read: %v", err), Err: err}
}
