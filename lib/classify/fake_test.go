package classify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-classify/lib"
	"media-classify/lib/probe"
	"media-classify/lib/probe/probetest"
)

// fakeEncoder writes a file sized ratio times the input and registers it
// with the prober the way ffmpeg output would look. When interrupt is set it
// is called once the output exists, and Encode returns the context's error.
type fakeEncoder struct {
	prober    *probetest.Fake
	ratio     float64
	dryRun    bool
	encodeErr error
	verifyErr error
	interrupt func()

	mu      sync.Mutex
	inputs  []string
	outputs []string
	created []time.Time
}

func (e *fakeEncoder) Encode(ctx context.Context, input, output string, created time.Time) error {
	e.mu.Lock()
	e.inputs = append(e.inputs, input)
	e.outputs = append(e.outputs, output)
	e.created = append(e.created, created)
	e.mu.Unlock()

	if e.encodeErr != nil {
		return e.encodeErr
	}
	if e.dryRun {
		return nil
	}
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}
	size := int(float64(info.Size()) * e.ratio)
	if err := os.WriteFile(output, make([]byte, size), 0644); err != nil {
		return err
	}
	if e.interrupt != nil {
		e.interrupt()
		return ctx.Err()
	}
	e.prober.Set(output, probetest.File{
		Codec:   "hevc",
		Bitrate: 2_000_000,
		Tags: map[string]string{
			probe.TagComment:      lib.DefaultMarker,
			probe.TagCreationTime: created.UTC().Format(time.RFC3339Nano),
		},
	})
	return nil
}

func (e *fakeEncoder) Verify(ctx context.Context, path string) error {
	return e.verifyErr
}

func (e *fakeEncoder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inputs)
}
