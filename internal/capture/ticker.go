package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/junsooki/airview/internal/logging"
)

// ticker drives a Source at a fixed rate. next renders frame n; io.EOF from
// next ends the stream and closes the frame channel. A consumer that falls
// behind misses frames rather than delaying the producer.
type ticker struct {
	fps  int
	next func(n int) (*image.RGBA, error)

	frameCh chan *Frame
	stopCh  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func newTicker(fps int, next func(n int) (*image.RGBA, error)) (*ticker, error) {
	if fps <= 0 || fps > 60 {
		return nil, fmt.Errorf("fps must be 1-60, got %d", fps)
	}
	return &ticker{
		fps:     fps,
		next:    next,
		frameCh: make(chan *Frame, 2),
		stopCh:  make(chan struct{}),
	}, nil
}

func (t *ticker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("already running")
	}
	t.started = true
	t.wg.Add(1)
	go t.loop()
	return nil
}

// Stop ends production and waits for the loop to exit. It is idempotent.
func (t *ticker) Stop() {
	t.mu.Lock()
	if !t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	close(t.stopCh)
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *ticker) Frames() <-chan *Frame {
	return t.frameCh
}

func (t *ticker) loop() {
	defer t.wg.Done()
	defer close(t.frameCh)

	tk := time.NewTicker(time.Second / time.Duration(t.fps))
	defer tk.Stop()

	n := 0
	for {
		select {
		case <-t.stopCh:
			return
		case <-tk.C:
			img, err := t.next(n)
			n++
			if errors.Is(err, io.EOF) {
				logging.Logger().Info("frame source ended", "frames", n-1)
				return
			}
			if err != nil {
				logging.Logger().Warn("render frame", "frame", n-1, "err", err)
				continue
			}
			select {
			case t.frameCh <- &Frame{Image: img, Timestamp: time.Now()}:
			default:
			}
		}
	}
}
