package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/junsooki/airview/internal/capture"
	"github.com/junsooki/airview/internal/config"
	"github.com/junsooki/airview/internal/decoder"
	"github.com/junsooki/airview/internal/display"
	"github.com/junsooki/airview/internal/gles/soft"
	"github.com/junsooki/airview/internal/logging"
	"github.com/junsooki/airview/internal/peer"
	"github.com/junsooki/airview/internal/player"
	"github.com/junsooki/airview/internal/session"
	"github.com/junsooki/airview/internal/signaling"
	"github.com/junsooki/airview/internal/surfacetex"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "airview-viewer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseViewerFlags()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	log := logging.Logger()

	log.Info("AirView viewer starting",
		"viewer", cfg.ViewerID,
		"mode", cfg.Mode,
		"source", cfg.SourceID,
		"signaling", cfg.SignalingURL,
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))

	// The producer pushes into whichever texture the player currently renders.
	var current atomic.Pointer[surfacetex.Texture]
	push := func(f *capture.Frame) {
		if tex := current.Load(); tex != nil {
			tex.Push(f.Image)
		}
	}

	drv := soft.New()
	p := player.New(drv, drv, session.Options{Pacing: cfg.Pacing}, func(tex *surfacetex.Texture) {
		current.Store(tex)
	})

	var stopProducer func()
	switch cfg.Mode {
	case config.ModePattern:
		stopProducer, err = startPattern(cfg, push)
	case config.ModeFile:
		stopProducer, err = startFile(cfg, push)
	case config.ModeWebRTC:
		stopProducer, err = startWebRTC(cfg, push)
	}
	if err != nil {
		return err
	}
	defer stopProducer()

	win := display.NewEbitenWindow("AirView", cfg.Width, cfg.Height)
	win.Acquire()
	p.SurfaceCreated(win)
	defer win.Release()
	defer func() {
		p.SurfaceDestroyed()
		st := p.Session().Stats()
		log.Info("viewer stopped", "frames", st.Frames, "dropped", st.DroppedFrames)
	}()

	// Ebitengine RunGame must be on the main goroutine (macOS requirement).
	if err := win.Run(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if err := p.Session().Err(); err != nil {
		return fmt.Errorf("render session: %w", err)
	}
	return nil
}

func startPattern(cfg *config.ViewerConfig, push func(*capture.Frame)) (func(), error) {
	src, err := capture.NewPattern(cfg.Width, cfg.Height, cfg.FPS)
	if err != nil {
		return nil, err
	}
	return startLocal(src, push)
}

func startFile(cfg *config.ViewerConfig, push func(*capture.Frame)) (func(), error) {
	src, err := capture.NewFile(cfg.File, cfg.FPS, cfg.Loop)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.File, err)
	}
	logging.Logger().Info("playing file", "path", cfg.File, "frames", src.Len(), "loop", cfg.Loop)
	return startLocal(src, push)
}

// startLocal forwards frames from an in-process source. When a clip ends
// the last frame stays on screen.
func startLocal(src capture.Source, push func(*capture.Frame)) (func(), error) {
	if err := src.Start(); err != nil {
		return nil, err
	}
	go func() {
		for f := range src.Frames() {
			push(f)
		}
	}()
	return src.Stop, nil
}

func startWebRTC(cfg *config.ViewerConfig, push func(*capture.Frame)) (func(), error) {
	log := logging.Logger()
	dec := decoder.NewJPEGDecoder()

	var viewer atomic.Pointer[peer.Viewer]
	var sig *signaling.Client
	sig = signaling.NewClient(cfg.SignalingURL, cfg.ViewerID, signaling.ClientTypeViewer, signaling.Handler{
		OnRegistered: func() {
			log.Info("registered with signaling server")

			v, err := peer.NewViewer(sig, cfg.SourceID)
			if err != nil {
				log.Error("create viewer peer", "err", err)
				return
			}
			v.Transport().OnFrame(func(data []byte) {
				img, err := dec.Decode(data)
				if err != nil {
					log.Debug("decode frame", "err", err)
					return
				}
				push(&capture.Frame{Image: img, Timestamp: time.Now()})
			})
			if old := viewer.Swap(v); old != nil {
				old.Close()
			}
			if err := v.Connect(); err != nil {
				log.Error("viewer connect", "err", err)
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if v := viewer.Load(); v != nil {
				if err := v.HandleAnswer(payload); err != nil {
					log.Warn("handle answer", "from", from, "err", err)
				}
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if v := viewer.Load(); v != nil {
				if err := v.HandleICECandidate(payload); err != nil {
					log.Warn("handle ICE candidate", "from", from, "err", err)
				}
			}
		},
		OnSourceDisconnected: func(sourceID string) {
			log.Info("source disconnected", "source", sourceID)
		},
		OnError: func(msg string) {
			log.Warn("signaling error", "message", msg)
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sig.Connect(ctx); err != nil {
		return nil, err
	}
	return func() {
		if v := viewer.Load(); v != nil {
			v.Close()
		}
		sig.Close()
	}, nil
}
