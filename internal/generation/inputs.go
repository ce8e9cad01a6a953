package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ai-artist-backend/internal/media"

	"github.com/google/uuid"
)

// Role tags an input image with its purpose in a request.
type Role string

const (
	RoleBase      Role = "base"
	RoleReference Role = "reference"
	RoleInput     Role = "input"
)

// Input is one user-supplied image held by a controller until generation.
type Input struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`

	src media.Source
}

// inputSet holds role-tagged inputs with a per-role maximum. A role with a
// maximum of one replaces its input instead of rejecting the second.
type inputSet struct {
	mu     sync.Mutex
	limits map[Role]int
	items  map[Role][]Input
}

func newInputSet(limits map[Role]int) *inputSet {
	return &inputSet{limits: limits, items: make(map[Role][]Input)}
}

func (s *inputSet) add(role Role, src media.Source) (Input, error) {
	added, err := s.addAll(role, []media.Source{src})
	if err != nil {
		return Input{}, err
	}
	return added[0], nil
}

// addAll attaches srcs as one batch: either every source is accepted or the
// set is left unchanged. For a role with a maximum of one only the last
// source is kept.
func (s *inputSet) addAll(role Role, srcs []media.Source) ([]Input, error) {
	limit, ok := s.limits[role]
	if !ok {
		return nil, validationError(fmt.Sprintf("unsupported input role %q", role))
	}
	if len(srcs) == 0 {
		return nil, validationError("no input images")
	}
	batch := make([]Input, 0, len(srcs))
	for _, src := range srcs {
		if mt := src.MimeType(); mt != "" && !strings.HasPrefix(mt, "image/") && mt != "application/octet-stream" {
			return nil, validationError(fmt.Sprintf("%s is not an image", src.Name()))
		}
		batch = append(batch, Input{ID: uuid.NewString(), Role: role, Name: src.Name(), MimeType: src.MimeType(), src: src})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.items[role]
	switch {
	case limit == 1:
		batch = batch[len(batch)-1:]
		s.items[role] = batch
	case len(cur)+len(batch) > limit:
		return nil, &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("at most %d %s images can be uploaded", limit, role),
			Err:     ErrTooManyInputs,
		}
	default:
		s.items[role] = append(cur, batch...)
	}
	return batch, nil
}

func (s *inputSet) remove(role Role, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.items[role]
	for i, in := range cur {
		if in.ID == id {
			s.items[role] = append(cur[:i:i], cur[i+1:]...)
			return true
		}
	}
	return false
}

func (s *inputSet) clear(role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, role)
}

func (s *inputSet) list(role Role) []Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Input(nil), s.items[role]...)
}

func (s *inputSet) count(role Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[role])
}

// encodeInputs converts inputs to wire form, preserving order.
func encodeInputs(ctx context.Context, inputs []Input) ([]media.Upload, error) {
	srcs := make([]media.Source, len(inputs))
	for i, in := range inputs {
		srcs[i] = in.src
	}
	return media.EncodeAll(ctx, srcs)
}
