package supabase

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

// Publisher uploads saved creations to a public storage bucket.
type Publisher struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func newPublisher(client *storage.Client, supabaseURL, bucket string) *Publisher {
	return &Publisher{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(supabaseURL, "/"),
	}
}

// Upload stores data under creations/{uuid}/{filename} and returns the
// storage path and its public URL.
func (p *Publisher) Upload(filename, contentType string, data []byte) (string, string, error) {
	storagePath := fmt.Sprintf("creations/%s/%s", uuid.NewString(), filename)

	upsert := false
	_, err := p.client.UploadFile(p.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file: %w", err)
	}

	return storagePath, p.PublicURL(storagePath), nil
}

func (p *Publisher) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		p.baseURL, p.bucket, storagePath)
}

func (p *Publisher) Bucket() string {
	return p.bucket
}
