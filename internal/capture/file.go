package capture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/junsooki/airview/internal/decoder"
)

// imageExts are the still-image formats a sequence directory may hold.
var imageExts = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff", ".webp"}

// FileSource plays back encoded frames read from disk: a directory of still
// images in name order, a Motion JPEG file (.mjpeg, .mjpg) or one image.
// Frames are decoded as they are played.
type FileSource struct {
	*ticker
	frames [][]byte
}

var _ Source = (*FileSource)(nil)

// NewFile loads the frames at path for playback at fps. With loop set the
// clip restarts after its last frame; otherwise the frame channel closes.
func NewFile(path string, fps int, loop bool) (*FileSource, error) {
	frames, err := loadFrames(path)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames in %s", path)
	}
	f := &FileSource{frames: frames}
	f.ticker, err = newTicker(fps, func(n int) (*image.RGBA, error) {
		if n >= len(frames) && !loop {
			return nil, io.EOF
		}
		return decodeFrame(frames[n%len(frames)])
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Len returns the number of frames in the clip.
func (f *FileSource) Len() int {
	return len(f.frames)
}

func loadFrames(path string) ([][]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loadSequence(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mjpeg", ".mjpg":
		return SplitMJPEG(data), nil
	}
	return [][]byte{data}, nil
}

func loadSequence(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames [][]byte
	// ReadDir returns entries sorted by name.
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		frames = append(frames, data)
	}
	return frames, nil
}

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// SplitMJPEG cuts a Motion JPEG stream into its JPEG images. Bytes between
// images are skipped; a trailing partial image is dropped. Images carrying
// an embedded JPEG thumbnail are not supported.
func SplitMJPEG(data []byte) [][]byte {
	var frames [][]byte
	for {
		i := bytes.Index(data, jpegSOI)
		if i < 0 {
			return frames
		}
		data = data[i:]
		j := bytes.Index(data[len(jpegSOI):], jpegEOI)
		if j < 0 {
			return frames
		}
		end := len(jpegSOI) + j + len(jpegEOI)
		frames = append(frames, data[:end:end])
		data = data[end:]
	}
}

func decodeFrame(data []byte) (*image.RGBA, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width*cfg.Height > decoder.DefaultMaxPixels {
		return nil, fmt.Errorf("frame %dx%d exceeds %d pixels", cfg.Width, cfg.Height, decoder.DefaultMaxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return rgba, nil
}
