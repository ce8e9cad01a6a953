package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"ai-artist-backend/internal/media"
)

// VideoRequest describes one video generation job. With a single reference
// image the image seeds the first frame; with several they are passed as
// asset references.
type VideoRequest struct {
	Model       string
	Prompt      string
	References  []media.Upload
	AspectRatio string
	Resolution  string
}

// Operation is a long-running video job.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoReference struct {
	Image         videoImage `json:"image"`
	ReferenceType string     `json:"referenceType"`
}

type videoInstance struct {
	Prompt          string           `json:"prompt,omitempty"`
	Image           *videoImage      `json:"image,omitempty"`
	ReferenceImages []videoReference `json:"referenceImages,omitempty"`
}

type videoParameters struct {
	NumberOfVideos int    `json:"numberOfVideos"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
}

type predictLongRunningRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type operationResponse struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *operationResponse) operation() *Operation {
	op := &Operation{Name: r.Name, Done: r.Done}
	if r.Error != nil {
		op.Error = r.Error.Message
	}
	if r.Response != nil {
		for _, s := range r.Response.GenerateVideoResponse.GeneratedSamples {
			if s.Video.URI != "" {
				op.VideoURI = s.Video.URI
				break
			}
		}
	}
	return op
}

// SubmitVideo starts a video job via models/{model}:predictLongRunning.
func (c *Client) SubmitVideo(ctx context.Context, vr VideoRequest) (*Operation, error) {
	inst := videoInstance{Prompt: vr.Prompt}
	switch len(vr.References) {
	case 0:
	case 1:
		inst.Image = &videoImage{BytesBase64Encoded: vr.References[0].Data, MimeType: vr.References[0].MimeType}
	default:
		for _, ref := range vr.References {
			inst.ReferenceImages = append(inst.ReferenceImages, videoReference{
				Image:         videoImage{BytesBase64Encoded: ref.Data, MimeType: ref.MimeType},
				ReferenceType: "asset",
			})
		}
	}

	req := predictLongRunningRequest{
		Instances: []videoInstance{inst},
		Parameters: videoParameters{
			NumberOfVideos: 1,
			AspectRatio:    vr.AspectRatio,
			Resolution:     vr.Resolution,
		},
	}

	var resp operationResponse
	if err := c.doJSON(ctx, http.MethodPost, "models/"+vr.Model+":predictLongRunning", req, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("operation name is empty in response")
	}
	c.log.Info("video job submitted", "operation", resp.Name, "model", vr.Model, "references", len(vr.References))
	return resp.operation(), nil
}

// Polling and downloads ride out brief upstream hiccups instead of failing a
// job that may have been running for minutes.
const pollRetries = 3

// PollVideo fetches the current state of a video job.
func (c *Client) PollVideo(ctx context.Context, name string) (*Operation, error) {
	var resp operationResponse
	err := c.RetryWithBackoff(ctx, func() error {
		resp = operationResponse{}
		return c.doJSON(ctx, http.MethodGet, name, nil, &resp)
	}, pollRetries)
	if err != nil {
		return nil, err
	}
	if resp.Name == "" {
		resp.Name = name
	}
	return resp.operation(), nil
}

// Download fetches a generated artifact with the client's credential and
// returns its bytes and content type.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := c.RetryWithBackoff(ctx, func() error {
		var err error
		data, contentType, err = c.download(ctx, uri)
		return err
	}, pollRetries)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = media.SniffMimeType(data)
	}
	return data, contentType, nil
}

func (c *Client) download(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file data: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", classify(&HTTPError{StatusCode: resp.StatusCode, Body: string(data)})
	}
	return data, resp.Header.Get("Content-Type"), nil
}
