package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// Upload is a user-supplied file in wire form: MIME type plus base64 of the exact bytes.
type Upload struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// DataURI renders the upload as a data: URI.
func (u Upload) DataURI() string {
	return DataURI(u.MimeType, u.Data)
}

// Bytes decodes the base64 payload.
func (u Upload) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(u.Data)
}

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrInvalidDataURI = errors.New("invalid data URI")
)

// Source is anything that can be read as a user-supplied file.
type Source interface {
	Name() string
	MimeType() string
	Open() (io.ReadCloser, error)
}

// FromFileHeader copies a multipart upload into memory. The request's
// temporary files are removed once the handler returns, while inputs are
// held until generation.
func FromFileHeader(fh *multipart.FileHeader) (Source, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return FromBytes(fh.Filename, resolveMimeType(fh.Header.Get("Content-Type"), data), data), nil
}

type bytesSource struct {
	name     string
	mimeType string
	data     []byte
}

// FromBytes wraps an in-memory file. mimeType may be empty.
func FromBytes(name, mimeType string, data []byte) Source {
	return bytesSource{name: name, mimeType: mimeType, data: data}
}

func (s bytesSource) Name() string     { return s.name }
func (s bytesSource) MimeType() string { return s.mimeType }
func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// Encode reads the source completely and returns its exact bytes as base64.
// A declared MIME type is kept unless it is missing or generic, in which case
// the content is sniffed.
func Encode(src Source) (Upload, error) {
	rc, err := src.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Upload{}, fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	if len(data) == 0 {
		return Upload{}, fmt.Errorf("%s: %w", src.Name(), ErrEmptyFile)
	}

	return Upload{
		MimeType: resolveMimeType(src.MimeType(), data),
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// EncodeAll encodes every source concurrently. Results are positional; the
// first failure cancels the batch.
func EncodeAll(ctx context.Context, srcs []Source) ([]Upload, error) {
	out := make([]Upload, len(srcs))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			u, err := Encode(src)
			if err != nil {
				return err
			}
			out[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func resolveMimeType(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	return SniffMimeType(data)
}

// SniffMimeType detects the content type of data, without parameters.
func SniffMimeType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// DataURI builds a base64 data URI.
func DataURI(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// IsDataURI reports whether s looks like a base64 data URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:") && strings.Contains(s, ";base64,")
}

// ParseDataURI splits a base64 data URI into its MIME type and decoded bytes.
func ParseDataURI(s string) (string, []byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return strings.TrimSuffix(header, ";base64"), data, nil
}

// NormalizeImagePayload returns a data URI for an image payload. Bare base64
// is assumed to be PNG.
func NormalizeImagePayload(s string) string {
	if strings.HasPrefix(s, "data:") {
		return s
	}
	return DataURI("image/png", s)
}

// DownloadName returns a timestamped file name such as
// ai-artist-image-20250102-150405.png.
func DownloadName(kind, mimeType string, t time.Time) string {
	return fmt.Sprintf("ai-artist-%s-%s%s", kind, t.Format("20060102-150405"), Extension(mimeType))
}

// Extension maps a MIME type to a file extension, including the dot.
func Extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	}
	if m := mimetype.Lookup(mimeType); m != nil {
		return m.Extension()
	}
	return ".bin"
}
