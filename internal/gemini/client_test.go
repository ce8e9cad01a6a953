package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := gemini.NewClient("https://api.test.com/v1beta", "test-key", nil)
	assert.NotNil(t, client)
}

func TestGenerateText_SendsKeyAndImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req gemini.GenerateContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, "describe", req.Contents[0].Parts[0].Text)
		assert.Equal(t, "image/png", req.Contents[0].Parts[1].InlineData.MimeType)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  a cat  "}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "test-key", nil)
	text, err := client.GenerateText(context.Background(), "gemini-2.5-flash", "describe",
		[]media.Upload{{MimeType: "image/png", Data: "QUJD"}})
	require.NoError(t, err)
	assert.Equal(t, "a cat", text)
}

func TestGenerateJSON_DecodesLabels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"responseMimeType":"application/json"`)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[\"tree\",\"bird\"]"}]}}]}`))
	}))
	defer server.Close()

	var labels []string
	client := gemini.NewClient(server.URL, "k", nil)
	require.NoError(t, client.GenerateJSON(context.Background(), "m", "list", nil, &labels))
	assert.Equal(t, []string{"tree", "bird"}, labels)
}

func TestGenerateImages_SkipsUnfinishedCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"responseModalities":["IMAGE"]`)
		w.Write([]byte(`{"candidates":[
			{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"AAA"}}]},"finishReason":"SAFETY"},
			{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"BBB"}}]},"finishReason":"STOP"}
		]}`))
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "k", nil)
	images, err := client.GenerateImages(context.Background(), "m", "draw", nil)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "BBB", images[0].Data)
}

func TestGenerateImages_Blocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "k", nil)
	_, err := client.GenerateImages(context.Background(), "m", "draw", nil)
	var blocked *gemini.BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, "SAFETY", blocked.Reason)
	assert.Contains(t, blocked.FriendlyMessage(), "safety")
}

func TestImagen_SingleSample(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/imagen-4.0-generate-001:predict", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"sampleCount":1`)
		assert.Contains(t, string(body), `"aspectRatio":"16:9"`)
		w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"QUJD","mimeType":"image/png"}]}`))
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "k", nil)
	images, err := client.Imagen(context.Background(), "imagen-4.0-generate-001", "a fox", "16:9")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "QUJD", images[0].Data)
}

func TestCredentialRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"Requested entity was not found."}}`))
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "k", nil)
	_, err := client.GenerateText(context.Background(), "m", "hi", nil)
	assert.ErrorIs(t, err, gemini.ErrCredentialRejected)

	var httpErr *gemini.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestVideoLifecycle(t *testing.T) {
	var polls int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			inst := req["instances"].([]any)[0].(map[string]any)
			refs := inst["referenceImages"].([]any)
			assert.Len(t, refs, 2)
			assert.Equal(t, "asset", refs[0].(map[string]any)["referenceType"])
			w.Write([]byte(`{"name":"models/veo/operations/op1"}`))
		case r.URL.Path == "/models/veo/operations/op1":
			if atomic.AddInt32(&polls, 1) < 2 {
				w.Write([]byte(`{"name":"models/veo/operations/op1","done":false}`))
				return
			}
			w.Write([]byte(`{"name":"models/veo/operations/op1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"` + server.URL + `/files/v1"}}]}}}`))
		case r.URL.Path == "/files/v1":
			assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("movie"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "k", nil)
	ctx := context.Background()
	op, err := client.SubmitVideo(ctx, gemini.VideoRequest{
		Model:       "veo",
		Prompt:      "go",
		References:  []media.Upload{{MimeType: "image/png", Data: "QQ=="}, {MimeType: "image/png", Data: "Qg=="}},
		AspectRatio: "16:9",
		Resolution:  "720p",
	})
	require.NoError(t, err)
	assert.False(t, op.Done)

	op, err = client.PollVideo(ctx, op.Name)
	require.NoError(t, err)
	assert.False(t, op.Done)

	op, err = client.PollVideo(ctx, op.Name)
	require.NoError(t, err)
	require.True(t, op.Done)

	data, mt, err := client.Download(ctx, op.VideoURI)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", mt)
	assert.Equal(t, []byte("movie"), data)
}

func TestWithAPIKey_DoesNotMutateOriginal(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("x-goog-api-key"))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	base := gemini.NewClient(server.URL, "first", nil)
	other := base.WithAPIKey("second")
	_, err := other.GenerateText(context.Background(), "m", "hi", nil)
	require.NoError(t, err)
	_, err = base.GenerateText(context.Background(), "m", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, seen)
}

func TestRetryWithBackoff_StopsOnPermanentError(t *testing.T) {
	client := gemini.NewClient("http://unused", "k", nil)
	calls := 0
	err := client.RetryWithBackoff(context.Background(), func() error {
		calls++
		return &gemini.HTTPError{StatusCode: http.StatusBadRequest}
	}, 3)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesTemporary(t *testing.T) {
	client := gemini.NewClient("http://unused", "k", nil)
	calls := 0
	err := client.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 2 {
			return &gemini.HTTPError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPollVideo_RetriesUnavailable(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"name":"operations/1","done":false}`))
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "k", nil)
	op, err := client.PollVideo(context.Background(), "operations/1")
	require.NoError(t, err)
	assert.Equal(t, "operations/1", op.Name)
	assert.Equal(t, 2, calls)
}

func TestDownload_RejectedKeyIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := gemini.NewClient(server.URL, "k", nil)
	_, _, err := client.Download(context.Background(), server.URL+"/files/v.mp4")
	require.ErrorIs(t, err, gemini.ErrCredentialRejected)
	assert.Equal(t, 1, calls)
}
