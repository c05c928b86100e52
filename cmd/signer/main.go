// Package main provides the batch signer: it signs every photo of a directory with the
// most visible sign of a sign library.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/UnendingLoop/PhotoSigner/internal/placement"
	"github.com/UnendingLoop/PhotoSigner/internal/signer"
	"github.com/UnendingLoop/PhotoSigner/internal/signphoto"
	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.InitConsole()

	// энвы и .env задают дефолты для флагов
	appConfig := config.New()
	appConfig.EnableEnv("")
	if _, err := os.Stat("./.env"); err == nil {
		if err := appConfig.LoadEnvFiles("./.env"); err != nil {
			log.Fatalf("Failed to load envs: %s\nExiting app...", err)
		}
	}
	env := envDefaults{cfg: appConfig}

	fs := pflag.NewFlagSet("signer", pflag.ExitOnError)
	photoDir := fs.String("photos", env.strOr("SIGNER_PHOTOS", ""), "directory with photos to sign")
	signDir := fs.String("signs", env.strOr("SIGNER_SIGNS", ""), "directory with the sign library")
	prefix := fs.String("prefix", env.strOr("SIGNER_PREFIX", signphoto.DefaultPrefix), "file name prefix of signed photos")
	corner := fs.String("corner", env.strOr("SIGNER_CORNER", string(placement.BottomRight)), "anchor corner: top-left, top-right, bottom-left, bottom-right, center")
	margin := fs.Int("margin", env.intOr("SIGNER_MARGIN", 16), "inset from the corner, px")
	scale := fs.Float64("scale", env.floatOr("SIGNER_SCALE", 0), "fixed sign scale with -auto-scale, 0 derives it from -sign-ratio")
	ratio := fs.Float64("sign-ratio", env.floatOr("SIGNER_SIGN_RATIO", placement.DefaultSignRatio), "share of the shorter photo side covered by the sign with -auto-scale")
	autoColor := fs.Bool("auto-color", env.boolOr("SIGNER_AUTO_COLOR", false), "paint the sign in a color contrasting the background")
	autoScale := fs.Bool("auto-scale", env.boolOr("SIGNER_AUTO_SCALE", false), "draw the sign at the computed scale")
	workers := fs.Int("workers", env.intOr("SIGNER_WORKERS", runtime.NumCPU()), "photos signed concurrently")
	logLevel := fs.String("log-level", env.strOr("SIGNER_LOG_LEVEL", "info"), "log level")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	if err := zlog.SetLevel(*logLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	if *photoDir == "" || *signDir == "" {
		fmt.Fprintln(os.Stderr, "both -photos and -signs are required")
		fs.Usage()
		os.Exit(2)
	}

	c, err := placement.ParseCorner(*corner)
	if err != nil {
		log.Fatalf("Invalid -corner: %v", err)
	}
	cfg := signer.Config{
		Placement: placement.Config{
			Corner:    c,
			Margin:    *margin,
			ScaleRate: *scale,
			SignRatio: *ratio,
		},
		AutoColor: *autoColor,
		AutoScale: *autoScale,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// библиотека грузится один раз до старта воркеров
	lib := signer.NewLibrary()
	n, err := lib.Load(*signDir)
	if err != nil {
		log.Fatalf("Failed to load sign library: %v", err)
	}
	defer lib.Clear()
	zlog.Logger.Info().Int("signs", n).Str("dir", *signDir).Msg("sign library loaded")

	mgr := &signphoto.Manager{
		PhotoDir: *photoDir,
		Prefix:   *prefix,
		Quality:  signphoto.DefaultQuality,
		Workers:  *workers,
	}

	rep, err := mgr.SignAll(ctx, signer.NewDrawer(lib, nil), cfg)
	zlog.Logger.Info().
		Int("signed", rep.Signed).
		Int("no_candidate", rep.NoCandidate).
		Int("failed", rep.Failed).
		Int("skipped", rep.Skipped).
		Msg("batch finished")

	switch {
	case errors.Is(err, context.Canceled):
		log.Println("Interrupted, exiting...")
		os.Exit(130)
	case err != nil:
		log.Fatalf("Batch failed: %v", err)
	case rep.Failed > 0:
		os.Exit(1)
	}
}
