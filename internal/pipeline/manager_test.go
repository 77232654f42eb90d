package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/kona-downloader/internal/archive"
	"github.com/handiism/kona-downloader/internal/discovery"
	"github.com/handiism/kona-downloader/internal/http"
	"github.com/handiism/kona-downloader/internal/model"
	"github.com/handiism/kona-downloader/internal/progress"
)

type fakeFetcher struct {
	mu      sync.Mutex
	files   map[string][]byte
	errs    map[string]error
	empty   map[string]bool
	fetched []string

	started chan struct{}
	release chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		files: make(map[string][]byte),
		errs:  make(map[string]error),
		empty: make(map[string]bool),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, link model.Link, onState http.StateFunc, onProgress http.ProgressFunc) (*model.FetchResult, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, link.String())
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.release != nil {
		<-f.release
	}

	onState(link, http.StateUnsent)
	onState(link, http.StateOpened)

	if err, ok := f.errs[link.String()]; ok {
		onProgress(1, 2, true)
		onState(link, http.StateDone)
		return nil, err
	}

	if f.empty[link.String()] {
		onState(link, http.StateDone)
		return nil, nil
	}

	data := f.files[link.String()]
	total := int64(len(data))
	onState(link, http.StateHeadersReceived)
	onState(link, http.StateLoading)
	for i := int64(1); i <= 4; i++ {
		onProgress(total*i/4, total, true)
	}
	onState(link, http.StateDone)

	return model.NewFetchResult(link, data), nil
}

func (f *fakeFetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

type spyWriter struct {
	archive.Writer
	closed  int
	aborted int
	added   []string
}

func (w *spyWriter) Add(ctx context.Context, name string, data []byte, fn archive.ProgressFunc) error {
	w.added = append(w.added, name)
	return w.Writer.Add(ctx, name, data, fn)
}

func (w *spyWriter) Close() (*archive.Blob, error) {
	w.closed++
	return w.Writer.Close()
}

func (w *spyWriter) Abort() error {
	w.aborted++
	return w.Writer.Abort()
}

type spyOpener struct {
	inner   archive.Opener
	opened  int
	writer  *spyWriter
	openErr error
}

func (o *spyOpener) Open(ctx context.Context, capacity int64) (archive.Writer, error) {
	o.opened++
	if o.openErr != nil {
		return nil, o.openErr
	}
	w, err := o.inner.Open(ctx, capacity)
	if err != nil {
		return nil, err
	}
	o.writer = &spyWriter{Writer: w}
	return o.writer, nil
}

func newSpyOpener() *spyOpener {
	return &spyOpener{inner: archive.NewScratch(afero.NewMemMapFs(), "/scratch", "kona.zip")}
}

func makeLinks(t *testing.T, names ...string) []model.Link {
	t.Helper()
	base, err := url.Parse("https://example.com/course/files/")
	require.NoError(t, err)

	links := make([]model.Link, len(names))
	for i, name := range names {
		links[i], err = model.NewLink(i, name, base)
		require.NoError(t, err)
	}
	return links
}

type history struct {
	mu   sync.Mutex
	byID map[int][]int
}

func (h *history) record(e model.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byID == nil {
		h.byID = make(map[int][]int)
	}
	h.byID[e.ID] = append(h.byID[e.ID], e.Percent)
}

type events struct {
	mu   sync.Mutex
	list []ProgressEvent
}

func (e *events) add(ev ProgressEvent) {
	e.mu.Lock()
	e.list = append(e.list, ev)
	e.mu.Unlock()
}

func (e *events) count(level ProgressLevel) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.list {
		if ev.Level == level {
			n++
		}
	}
	return n
}

func TestRunAll_ThreeLinksSucceed(t *testing.T) {
	links := makeLinks(t, "a.bin", "b.bin", "c.bin")
	sizes := []int{10 * 1024, 20 * 1024, 5 * 1024}

	fetcher := newFakeFetcher()
	want := make(map[string][]byte)
	for i, link := range links {
		data := bytes.Repeat([]byte{byte('a' + i)}, sizes[i])
		fetcher.files[link.String()] = data
		want[model.FileNameFromURL(link.URL)] = data
	}

	var h history
	var ev events
	opener := newSpyOpener()
	tracker := progress.NewTracker(h.record)
	m := NewManager(fetcher, opener, tracker, 1<<30, ev.add)

	blob, err := m.RunAll(context.Background(), links)
	require.NoError(t, err)
	require.NotNil(t, blob)

	assert.Equal(t, 1, opener.writer.closed)
	assert.Equal(t, 0, opener.writer.aborted)
	assert.Equal(t, 1, ev.count(LevelSuccess))
	assert.Equal(t, 3, blob.Entries())

	data, err := blob.Bytes()
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	for i, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method)
		assert.Equal(t, uint64(sizes[i]), f.UncompressedSize64)

		rc, err := f.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, want[f.Name], got, "entry %s", f.Name)
	}

	for _, e := range tracker.Snapshot() {
		assert.True(t, e.Done)
		assert.False(t, e.Visible, "entries are hidden after a successful run")
	}

	received, done, total := m.GetProgress()
	assert.Equal(t, int64(35*1024), received)
	assert.Equal(t, int32(3), done)
	assert.Equal(t, int32(3), total)

	for id, seq := range h.byID {
		require.NotEmpty(t, seq)
		assert.Equal(t, 100, seq[len(seq)-1], "entry %d", id)
		reached := false
		for i := 1; i < len(seq); i++ {
			assert.GreaterOrEqual(t, seq[i], seq[i-1], "entry %d not monotonic: %v", id, seq)
			if seq[i] == 100 {
				reached = true
			}
			if seq[i] < 100 {
				assert.False(t, reached, "entry %d left 100: %v", id, seq)
			}
		}
	}
}

func TestRunAll_SecondFetchNotFound(t *testing.T) {
	links := makeLinks(t, "first.pdf", "second.pdf")
	fetcher := newFakeFetcher()
	fetcher.files[links[0].String()] = []byte("first")
	fetcher.errs[links[1].String()] = &http.TransportError{URL: links[1].String(), StatusCode: 404, StatusText: "Not Found"}

	var ev events
	opener := newSpyOpener()
	tracker := progress.NewTracker(nil)
	m := NewManager(fetcher, opener, tracker, 1<<30, ev.add)

	blob, err := m.RunAll(context.Background(), links)
	require.Error(t, err)
	assert.Nil(t, blob)
	assert.Contains(t, UserMessage(err), "Not Found")

	var re *RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 1, re.Index)
	assert.Equal(t, PhaseFetch, re.Phase)

	assert.Equal(t, 0, opener.writer.closed, "archive must not be finalized")
	assert.Equal(t, 1, opener.writer.aborted)
	assert.Equal(t, 0, ev.count(LevelSuccess))
	assert.Equal(t, 1, ev.count(LevelError))

	first, ok := tracker.Get(0)
	require.True(t, ok)
	assert.True(t, first.Done)
	assert.Equal(t, model.Checkmark, first.Label())

	second, ok := tracker.Get(1)
	require.True(t, ok)
	assert.False(t, second.Done)
	assert.True(t, second.Visible, "indicators keep their last state on failure")
	assert.Equal(t, 25, second.Percent)
}

func TestRunAll_StopsAtFirstFailure(t *testing.T) {
	links := makeLinks(t, "1.bin", "2.bin", "3.bin", "4.bin")
	fetcher := newFakeFetcher()
	for _, link := range links {
		fetcher.files[link.String()] = []byte(link.String())
	}
	fetcher.errs[links[1].String()] = &http.TransportError{URL: links[1].String()}

	m := NewManager(fetcher, newSpyOpener(), nil, 1<<30, nil)
	_, err := m.RunAll(context.Background(), links)
	require.Error(t, err)
	assert.Equal(t, http.DefaultFailureMessage, UserMessage(err))

	assert.Equal(t, []string{links[0].String(), links[1].String()}, fetcher.Fetched())

	first, _ := m.Tracker().Get(0)
	assert.True(t, first.Done)
	_, ok := m.Tracker().Get(2)
	assert.False(t, ok, "links after the failure are never touched")
}

func TestRunAll_DoneWithoutPayload(t *testing.T) {
	links := makeLinks(t, "ok.bin", "empty.bin", "never.bin")
	fetcher := newFakeFetcher()
	fetcher.files[links[0].String()] = []byte("ok")
	fetcher.empty[links[1].String()] = true
	fetcher.files[links[2].String()] = []byte("x")

	opener := newSpyOpener()
	m := NewManager(fetcher, opener, nil, 1<<30, nil)
	blob, err := m.RunAll(context.Background(), links)

	require.Error(t, err)
	assert.Nil(t, blob)
	assert.Equal(t, http.DefaultFailureMessage, UserMessage(err))

	var te *http.TransportError
	assert.True(t, errors.As(err, &te))
	var re *RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, PhaseFetch, re.Phase)
	assert.Equal(t, 1, re.Index)

	assert.Equal(t, 0, opener.writer.closed)
	assert.Equal(t, 1, opener.writer.aborted)
	assert.Len(t, fetcher.Fetched(), 2)
}

func TestRunAll_NoLinks(t *testing.T) {
	fetcher := newFakeFetcher()
	opener := newSpyOpener()
	m := NewManager(fetcher, opener, nil, 1<<30, nil)

	_, err := m.RunAll(context.Background(), nil)
	require.ErrorIs(t, err, discovery.ErrNoFiles)
	assert.Equal(t, "no files to download", UserMessage(err))
	assert.Zero(t, opener.opened)
	assert.Empty(t, fetcher.Fetched())
}

func TestRunAll_OpenFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	opener := newSpyOpener()
	opener.openErr = &archive.StorageError{Code: archive.CodeQuotaExceeded}

	m := NewManager(fetcher, opener, nil, 1<<30, nil)
	_, err := m.RunAll(context.Background(), makeLinks(t, "a.bin"))

	require.Error(t, err)
	assert.Equal(t, "quota exceeded", UserMessage(err))
	assert.Empty(t, fetcher.Fetched())
}

func TestRunAll_ArchiveFailure(t *testing.T) {
	links := makeLinks(t, "small.bin", "huge.bin", "never.bin")
	fetcher := newFakeFetcher()
	fetcher.files[links[0].String()] = []byte("ok")
	fetcher.files[links[1].String()] = make([]byte, 8192)
	fetcher.files[links[2].String()] = []byte("x")

	opener := newSpyOpener()
	m := NewManager(fetcher, opener, nil, 4096, nil)
	_, err := m.RunAll(context.Background(), links)

	var re *RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, PhaseArchive, re.Phase)
	assert.Equal(t, "quota exceeded", UserMessage(err))
	assert.Len(t, fetcher.Fetched(), 2)
	assert.Equal(t, 0, opener.writer.closed)

	huge, _ := m.Tracker().Get(1)
	assert.Equal(t, 50, huge.Percent)
	assert.False(t, huge.Done)
}

func TestRunAll_RejectsConcurrentRun(t *testing.T) {
	links := makeLinks(t, "slow.bin")
	fetcher := newFakeFetcher()
	fetcher.files[links[0].String()] = []byte("slow")
	fetcher.started = make(chan struct{})
	fetcher.release = make(chan struct{})
	started := fetcher.started

	m := NewManager(fetcher, newSpyOpener(), nil, 1<<30, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.RunAll(context.Background(), links)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started fetching")
	}
	assert.True(t, m.Running())

	_, err := m.RunAll(context.Background(), links)
	require.ErrorIs(t, err, ErrRunInProgress)

	close(fetcher.release)
	require.NoError(t, <-done)
	assert.False(t, m.Running())

	// A finished run frees the slot again.
	fetcher.release = nil
	_, err = m.RunAll(context.Background(), links)
	assert.NoError(t, err)
}

func TestRunAll_ReusesEntriesAcrossRuns(t *testing.T) {
	links := makeLinks(t, "a.bin")
	fetcher := newFakeFetcher()
	fetcher.errs[links[0].String()] = &http.TransportError{StatusText: "Service Unavailable"}

	m := NewManager(fetcher, newSpyOpener(), nil, 1<<30, nil)
	_, err := m.RunAll(context.Background(), links)
	require.Error(t, err)

	delete(fetcher.errs, links[0].String())
	fetcher.files[links[0].String()] = []byte("now it works")

	_, err = m.RunAll(context.Background(), links)
	require.NoError(t, err)

	e, _ := m.Tracker().Get(0)
	assert.True(t, e.Done)
	assert.Equal(t, 1, m.Tracker().Len())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "cancelled", UserMessage(&RunError{Phase: PhaseFetch, Err: context.Canceled}))
	assert.Equal(t, "invalid state", UserMessage(&archive.StorageError{Code: archive.CodeInvalidState}))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
