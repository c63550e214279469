package downloader_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rstiegler/cf1400-downloader/internal/downloader"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeFetcher answers 404 for every URL it was not told about.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
}

func newFakeFetcher(responses map[string]fakeResponse) *fakeFetcher {
	return &fakeFetcher{responses: responses}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (downloader.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	resp, ok := f.responses[url]
	if !ok {
		resp = fakeResponse{status: 404, body: "not found"}
	}
	if resp.err != nil {
		return downloader.FetchResponse{}, resp.err
	}
	return downloader.FetchResponse{
		StatusCode: resp.status,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
	}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeFileStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	saveErr   error
	existsErr error
	saves     int
}

func newFakeFileStore(existing ...string) *fakeFileStore {
	s := &fakeFileStore{files: make(map[string][]byte)}
	for _, name := range existing {
		s.files[name] = []byte("existing")
	}
	return s
}

func (s *fakeFileStore) Exists(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.files[name]
	return ok, nil
}

func (s *fakeFileStore) Save(_ context.Context, name string, r io.Reader) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.files[name] = data
	return int64(len(data)), nil
}

func (s *fakeFileStore) Open(name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeFileStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names
}

type fakeMirror struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *fakeMirror) PutObject(_ context.Context, path, _ string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[path] = data
	return "gs://bucket/" + path, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
