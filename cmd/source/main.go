package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/junsooki/airview/internal/capture"
	"github.com/junsooki/airview/internal/config"
	"github.com/junsooki/airview/internal/encoder"
	"github.com/junsooki/airview/internal/logging"
	"github.com/junsooki/airview/internal/peer"
	"github.com/junsooki/airview/internal/signaling"
	"github.com/junsooki/airview/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "airview-source: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseSourceFlags()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	log := logging.Logger()

	log.Info("AirView source starting",
		"source", cfg.SourceID,
		"signaling", cfg.SignalingURL,
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"fps", cfg.FPS,
		"quality", cfg.Quality)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := capture.NewPattern(cfg.Width, cfg.Height, cfg.FPS)
	if err != nil {
		return fmt.Errorf("pattern init: %w", err)
	}
	enc := encoder.NewJPEGEncoder(cfg.Quality)

	// The peer is replaced on every offer; frames go to the newest one.
	var (
		mu         sync.Mutex
		sourcePeer *peer.Source
	)
	currentTransport := func() transport.FrameSender {
		mu.Lock()
		defer mu.Unlock()
		if sourcePeer == nil {
			return nil
		}
		return sourcePeer.Transport()
	}

	var sig *signaling.Client
	sig = signaling.NewClient(cfg.SignalingURL, cfg.SourceID, signaling.ClientTypeSource, signaling.Handler{
		OnRegistered: func() {
			log.Info("registered with signaling server")
		},
		OnOffer: func(from string, payload json.RawMessage) {
			log.Info("received offer", "from", from)
			p, err := peer.NewSource(sig)
			if err != nil {
				log.Error("create source peer", "err", err)
				return
			}
			mu.Lock()
			if sourcePeer != nil {
				sourcePeer.Close()
			}
			sourcePeer = p
			mu.Unlock()

			if err := p.HandleOffer(from, payload); err != nil {
				log.Warn("handle offer", "from", from, "err", err)
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			mu.Lock()
			p := sourcePeer
			mu.Unlock()
			if p == nil {
				return
			}
			if err := p.HandleICECandidate(payload); err != nil {
				log.Warn("handle ICE candidate", "from", from, "err", err)
			}
		},
		OnError: func(msg string) {
			log.Warn("signaling error", "message", msg)
		},
	})

	if err := sig.Connect(ctx); err != nil {
		return err
	}
	defer sig.Close()

	if err := src.Start(); err != nil {
		return fmt.Errorf("pattern start: %w", err)
	}

	log.Info("source ready, share this ID with viewers", "source", cfg.SourceID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		streamFrames(src.Frames(), enc, currentTransport)
		return nil
	})
	g.Go(func() error {
		select {
		case <-sig.Done():
			return errors.New("signaling connection closed")
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		src.Stop()
		mu.Lock()
		if sourcePeer != nil {
			sourcePeer.Close()
		}
		mu.Unlock()
		return nil
	})
	return g.Wait()
}

func streamFrames(frames <-chan *capture.Frame, enc encoder.Encoder, dst func() transport.FrameSender) {
	for frame := range frames {
		t := dst()
		if t == nil {
			continue
		}
		data, err := enc.Encode(frame.Image)
		if err != nil {
			logging.Logger().Warn("encode frame", "err", err)
			continue
		}
		// Nothing to do until a viewer's channel opens.
		_ = t.SendFrame(data)
	}
}
