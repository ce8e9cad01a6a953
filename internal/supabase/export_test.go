package supabase

import (
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// NewStoragePublisher builds a Publisher on a bare storage client.
func NewStoragePublisher(supabaseURL, key, bucket string) *Publisher {
	baseURL := strings.TrimRight(supabaseURL, "/")
	return newPublisher(storage.NewClient(baseURL+"/storage/v1", key, nil), baseURL, bucket)
}
