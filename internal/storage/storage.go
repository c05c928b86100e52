// Package storage connects the photo storage at start-up
package storage

import (
	"context"
	"log"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

// NewPhotoStorage retries until MinIO answers or ctx is cancelled; nil is returned only on
// cancellation.
func NewPhotoStorage(ctx context.Context, cfg *config.Config, delay time.Duration) *miniostorage.MinioPhotoStorage {
	settings := miniostorage.SettingsFromConfig(cfg)

	for {
		log.Println("Connecting to photo storage...")
		client, err := miniostorage.NewMinioClient(ctx, settings)
		if err == nil {
			log.Println("Successfully connected photo storage!")
			return client
		}
		log.Printf("Failed to init connection to photo storage: %v\nNext retry in %v...", err, delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}
