package azure

import "context"

// BlobStorage defines the interface for audio retention operations
// This interface allows for easier testing with mock implementations
type BlobStorage interface {
	UploadAudio(ctx context.Context, blobName string, data []byte, contentType string, metadata map[string]string) (string, error)
	DeleteAudio(ctx context.Context, blobName string) error
}

// Ensure BlobStorageClient implements BlobStorage interface
var _ BlobStorage = (*BlobStorageClient)(nil)
