// Package probetest provides an in-memory Prober for tests.
package probetest

import (
	"context"
	"fmt"
	"sync"

	"media-classify/lib/probe"
)

// File is what the fake reports for one path.
type File struct {
	Codec   string
	Bitrate int64
	Tags    map[string]string
	Err     error
}

// Fake answers probe queries from a map keyed by path. Unknown paths fail.
type Fake struct {
	mu    sync.Mutex
	files map[string]File
	calls int
}

func New() *Fake {
	return &Fake{files: make(map[string]File)}
}

func (f *Fake) Set(path string, file File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = file
}

// Calls returns the number of queries answered so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) lookup(path string) (File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	file, ok := f.files[path]
	if !ok {
		return File{}, fmt.Errorf("probe %s: no such file", path)
	}
	return file, file.Err
}

func (f *Fake) Codec(ctx context.Context, path string) (string, error) {
	file, err := f.lookup(path)
	if err != nil {
		return "", err
	}
	if file.Codec == "" {
		return "", probe.ErrNoValue
	}
	return file.Codec, nil
}

func (f *Fake) Bitrate(ctx context.Context, path string) (int64, error) {
	file, err := f.lookup(path)
	if err != nil {
		return 0, err
	}
	if file.Bitrate == 0 {
		return 0, probe.ErrNoValue
	}
	return file.Bitrate, nil
}

func (f *Fake) Tag(ctx context.Context, path, name string) (string, bool, error) {
	file, err := f.lookup(path)
	if err != nil {
		return "", false, err
	}
	value, ok := file.Tags[name]
	return value, ok, nil
}
