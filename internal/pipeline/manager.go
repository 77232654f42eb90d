package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/handiism/kona-downloader/internal/archive"
	"github.com/handiism/kona-downloader/internal/discovery"
	"github.com/handiism/kona-downloader/internal/http"
	"github.com/handiism/kona-downloader/internal/logging"
	"github.com/handiism/kona-downloader/internal/model"
	"github.com/handiism/kona-downloader/internal/progress"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a run progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Fetcher retrieves the bytes behind one link.
type Fetcher interface {
	Fetch(ctx context.Context, link model.Link, onState http.StateFunc, onProgress http.ProgressFunc) (*model.FetchResult, error)
}

// Run is the state of one RunAll invocation.
type Run struct {
	ID        string
	Links     []model.Link
	Index     int
	StartedAt time.Time

	writer archive.Writer
}

func newRun(links []model.Link) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Links:     links,
		StartedAt: time.Now(),
	}
}

// Current returns the link being processed.
func (r *Run) Current() model.Link {
	return r.Links[r.Index]
}

// Manager coordinates download runs.
type Manager struct {
	fetcher  Fetcher
	opener   archive.Opener
	tracker  *progress.Tracker
	capacity int64

	running atomic.Bool

	mu              sync.RWMutex
	receivedBytes   int64
	totalFiles      int32
	downloadedFiles int32

	onProgress func(ProgressEvent)
}

// NewManager creates a new Manager.
//
// capacity is the scratch space requested from opener for each run.
func NewManager(fetcher Fetcher, opener archive.Opener, tracker *progress.Tracker, capacity int64, onProgress func(ProgressEvent)) *Manager {
	if tracker == nil {
		tracker = progress.NewTracker(nil)
	}
	return &Manager{
		fetcher:    fetcher,
		opener:     opener,
		tracker:    tracker,
		capacity:   capacity,
		onProgress: onProgress,
	}
}

// Tracker returns the progress tracker updated by the Manager.
func (m *Manager) Tracker() *progress.Tracker {
	return m.tracker
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// RunAll fetches every link in order and packs the results into one archive.
//
// On success the finalized archive is returned and every progress entry is
// hidden. On failure the remaining links are skipped, the archive is
// abandoned and the entries keep their last state.
func (m *Manager) RunAll(ctx context.Context, links []model.Link) (*archive.Blob, error) {
	if len(links) == 0 {
		return nil, m.fail(ctx, nil, discovery.ErrNoFiles)
	}
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer m.running.Store(false)

	run := newRun(links)
	m.begin(run)

	ctx = logging.WithRunID(logging.WithComponent(ctx, "pipeline"), run.ID)
	logger := logging.FromContext(ctx)
	logger.Info().Int("links", len(links)).Msg("run started")

	m.tracker.Reset()

	w, err := m.opener.Open(ctx, m.capacity)
	if err != nil {
		return nil, m.fail(ctx, run, &RunError{Index: -1, Phase: PhaseOpen, Err: err})
	}
	run.writer = w

	for run.Index = 0; run.Index < len(run.Links); run.Index++ {
		if err := m.processLink(ctx, run); err != nil {
			if abortErr := w.Abort(); abortErr != nil {
				logger.Warn().Err(abortErr).Msg("failed to abandon archive")
			}
			return nil, m.fail(ctx, run, err)
		}
	}

	m.progress(ProgressEvent{Message: "All files downloaded", Level: LevelVerbose})

	blob, err := w.Close()
	if err != nil {
		return nil, m.fail(ctx, run, &RunError{Index: -1, Phase: PhaseClose, Err: err})
	}

	m.tracker.HideAll()

	logger.Info().
		Int("entries", blob.Entries()).
		Int64("bytes", blob.Size()).
		Dur("elapsed", time.Since(run.StartedAt)).
		Msg("run finished")
	m.progress(ProgressEvent{Message: fmt.Sprintf("Archive ready: %d files, %.2f MB", blob.Entries(), float64(blob.Size())/1024/1024), Level: LevelSuccess})

	return blob, nil
}

// GetProgress returns the progress of the current (or last) run.
func (m *Manager) GetProgress() (received int64, filesDone, filesTotal int32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receivedBytes, m.downloadedFiles, m.totalFiles
}

// processLink fetches the current link and adds it to the archive.
func (m *Manager) processLink(ctx context.Context, run *Run) error {
	link := run.Current()
	logger := logging.FromContext(ctx)

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %s", link), Level: LevelInfo})
	logger.Debug().Str("url", link.String()).Msg("fetching")

	res, err := m.fetcher.Fetch(ctx, link,
		func(l model.Link, state http.State) {
			if state == http.StateOpened {
				m.tracker.GetOrCreate(l)
			}
		},
		func(loaded, total int64, known bool) {
			if !known {
				return
			}
			if pct, ok := model.FetchPercent(loaded, total); ok {
				m.tracker.SetPercent(link.ID, pct)
			}
		},
	)
	if err != nil {
		return &RunError{Index: run.Index, Link: link, Phase: PhaseFetch, Err: err}
	}
	if res == nil {
		return &RunError{Index: run.Index, Link: link, Phase: PhaseFetch, Err: &http.TransportError{URL: link.String()}}
	}

	// Fetchers that never report StateOpened still get an entry.
	m.tracker.GetOrCreate(link)
	m.tracker.SetPercent(link.ID, model.FetchShare)

	m.progress(ProgressEvent{Message: fmt.Sprintf("Adding %s", res.Name), Level: LevelVerbose})
	logger.Debug().Str("name", res.Name).Int64("size", res.Size()).Msg("adding to archive")

	err = run.writer.Add(ctx, res.Name, res.Data, func(loaded, total int64) {
		m.tracker.SetPercent(link.ID, model.ArchivePercent(loaded, total))
	})
	if err != nil {
		return &RunError{Index: run.Index, Link: link, Phase: PhaseArchive, Err: err}
	}

	m.tracker.Complete(link.ID)

	m.mu.Lock()
	m.receivedBytes += res.Size()
	m.downloadedFiles++
	m.mu.Unlock()

	return nil
}

func (m *Manager) begin(run *Run) {
	m.mu.Lock()
	m.receivedBytes = 0
	m.downloadedFiles = 0
	m.totalFiles = int32(len(run.Links))
	m.mu.Unlock()
}

// fail logs err, reports it once and returns it.
func (m *Manager) fail(ctx context.Context, run *Run, err error) error {
	event := logging.FromContext(ctx).Error().Err(err)
	if run != nil {
		event = event.Str("run_id", run.ID)
	}
	event.Msg("run failed")

	m.progress(ProgressEvent{Message: "Download failed: " + UserMessage(err), Level: LevelError})
	return err
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
