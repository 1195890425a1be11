package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Viewer modes.
const (
	ModeWebRTC  = "webrtc"
	ModePattern = "pattern"
	ModeFile    = "file"
)

// ViewerConfig holds configuration for the viewer binary.
// Environment variables supply defaults; flags override them.
type ViewerConfig struct {
	SignalingURL string        `env:"AIRVIEW_SIGNALING" envDefault:"ws://localhost:8080"`
	ViewerID     string        `env:"AIRVIEW_ID"`
	SourceID     string        `env:"AIRVIEW_SOURCE"`
	Mode         string        `env:"AIRVIEW_MODE" envDefault:"webrtc"`
	Width        int           `env:"AIRVIEW_WIDTH" envDefault:"1280"`
	Height       int           `env:"AIRVIEW_HEIGHT" envDefault:"720"`
	Pacing       time.Duration `env:"AIRVIEW_PACING" envDefault:"16ms"`
	File         string        `env:"AIRVIEW_FILE"`
	Loop         bool          `env:"AIRVIEW_LOOP" envDefault:"true"`
	FPS          int           `env:"AIRVIEW_FPS" envDefault:"30"`
	LogLevel     string        `env:"AIRVIEW_LOG_LEVEL" envDefault:"info"`
}

// SourceConfig holds configuration for the source binary.
type SourceConfig struct {
	SignalingURL string `env:"AIRVIEW_SIGNALING" envDefault:"ws://localhost:8080"`
	SourceID     string `env:"AIRVIEW_ID"`
	Width        int    `env:"AIRVIEW_WIDTH" envDefault:"1280"`
	Height       int    `env:"AIRVIEW_HEIGHT" envDefault:"720"`
	FPS          int    `env:"AIRVIEW_FPS" envDefault:"30"`
	Quality      int    `env:"AIRVIEW_QUALITY" envDefault:"70"`
	LogLevel     string `env:"AIRVIEW_LOG_LEVEL" envDefault:"info"`
}

// ParseViewerFlags parses the environment and command line for the viewer.
func ParseViewerFlags() (*ViewerConfig, error) {
	return parseViewer(flag.CommandLine, os.Args[1:])
}

func parseViewer(fs *flag.FlagSet, args []string) (*ViewerConfig, error) {
	cfg := &ViewerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.SignalingURL, "signaling", cfg.SignalingURL, "Signaling server WebSocket URL")
	fs.StringVar(&cfg.ViewerID, "id", cfg.ViewerID, "Viewer ID (auto-generated if empty)")
	fs.StringVar(&cfg.SourceID, "source", cfg.SourceID, "Source ID to connect to (required in webrtc mode)")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Frame producer: webrtc, pattern or file")
	fs.StringVar(&cfg.File, "file", cfg.File, "Image directory, .mjpeg file or image to play in file mode")
	fs.BoolVar(&cfg.Loop, "loop", cfg.Loop, "Restart file playback after the last frame")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "Playback rate of local producers (1-60)")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Window surface width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Window surface height")
	fs.DurationVar(&cfg.Pacing, "pacing", cfg.Pacing, "Sleep between rendered frames")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case ModeWebRTC:
		if cfg.SourceID == "" {
			return nil, fmt.Errorf("-source is required in %s mode", ModeWebRTC)
		}
	case ModeFile:
		if cfg.File == "" {
			return nil, fmt.Errorf("-file is required in %s mode", ModeFile)
		}
	case ModePattern:
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("surface size must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 || cfg.FPS > 60 {
		return nil, fmt.Errorf("fps must be 1-60, got %d", cfg.FPS)
	}
	if cfg.ViewerID == "" {
		cfg.ViewerID = fmt.Sprintf("viewer-%s", randomID())
	}
	return cfg, nil
}

// ParseSourceFlags parses the environment and command line for the source.
func ParseSourceFlags() (*SourceConfig, error) {
	return parseSource(flag.CommandLine, os.Args[1:])
}

func parseSource(fs *flag.FlagSet, args []string) (*SourceConfig, error) {
	cfg := &SourceConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.SignalingURL, "signaling", cfg.SignalingURL, "Signaling server WebSocket URL")
	fs.StringVar(&cfg.SourceID, "id", cfg.SourceID, "Source ID (auto-generated if empty)")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Pattern width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Pattern height")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "Target frames per second")
	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "JPEG quality (1-100)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.FPS <= 0 || cfg.FPS > 60 {
		return nil, fmt.Errorf("fps must be 1-60, got %d", cfg.FPS)
	}
	if cfg.SourceID == "" {
		cfg.SourceID = fmt.Sprintf("source-%s", randomID())
	}
	return cfg, nil
}

func randomID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
