package main

import (
	"context"

	"github.com/UnendingLoop/PhotoSigner/internal/signer"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// NoopPublisher - ЗАГЛУШКА, функциональность настоящего паблишера в очередь не нужна в рамках работы воркера
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}

// loadSigns fills the library before the consumer starts; the worker cannot run without signs.
func loadSigns(dir string) (*signer.Library, error) {
	lib := signer.NewLibrary()
	n, err := lib.Load(dir)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errEmptyLibrary
	}
	zlog.Logger.Info().Int("signs", n).Str("dir", dir).Msg("Sign library loaded")
	return lib, nil
}
