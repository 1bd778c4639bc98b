package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureStore keeps uploads as block blobs in one container. References have
// the form "azure://<container>/<blob>".
type AzureStore struct {
	client    *azblob.Client
	container string
}

func NewAzureStore(client *azblob.Client, container string) *AzureStore {
	return &AzureStore{client: client, container: container}
}

// Save uploads data as a block blob. The blob content type is left to the
// service default.
func (s *AzureStore) Save(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return fmt.Sprintf("azure://%s/%s", s.container, name), nil
}

func (s *AzureStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	container, name, err := splitRef(ref, "azure")
	if err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return resp.Body, nil
}
