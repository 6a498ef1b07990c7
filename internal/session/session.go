// Package session keeps the per-browser state of the portal agent: the last
// search, the portals it produced and the current selection. Download
// records are handed back to the caller and never stored.
package session

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"transparencia-agent/internal/agent"
)

// State is the UI-level stage a session has reached.
type State int

const (
	StateIdle State = iota
	StatePortalsFound
	StateDownloadsComplete
)

func (s State) String() string {
	switch s {
	case StatePortalsFound:
		return "portals_found"
	case StateDownloadsComplete:
		return "downloads_complete"
	default:
		return "idle"
	}
}

// Stages are the three simulated pipeline steps a session drives.
type Stages interface {
	Discover(ctx context.Context, in agent.SearchInput) ([]string, error)
	Analyze(ctx context.Context, urls []string) ([]agent.PortalRecord, error)
	Download(ctx context.Context, portals []agent.PortalRecord, categories []agent.Category) ([]agent.DownloadRecord, error)
}

type Summary struct {
	Succeeded int
	Failed    int
}

// Session is mutated only through its methods, which hold its lock for the
// whole stage so a browser sees each stage complete before the next starts.
type Session struct {
	ID string

	mu                 sync.Mutex
	state              State
	input              agent.SearchInput
	urls               []string
	portals            []agent.PortalRecord
	selectedPortals    []int
	selectedCategories []agent.Category

	// lastSeen is unix nanoseconds, read by the store without taking mu.
	lastSeen atomic.Int64
}

func newSession(id string, now time.Time) *Session {
	s := &Session{ID: id}
	s.touch(now)
	return s
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Search runs discovery and analysis and replaces all previous state.
// Incomplete input leaves the session untouched and reports false.
func (s *Session) Search(ctx context.Context, stages Stages, in agent.SearchInput) (bool, error) {
	if !in.Complete() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	urls, err := stages.Discover(ctx, in)
	if err != nil {
		return false, err
	}
	portals, err := stages.Analyze(ctx, urls)
	if err != nil {
		return false, err
	}

	s.state = StatePortalsFound
	s.input = in
	s.urls = urls
	s.portals = portals
	s.selectedPortals = nil
	s.selectedCategories = nil
	return true, nil
}

// Select records which portals are selected. Unknown and repeated indices
// are dropped, as are selected categories no longer offered.
func (s *Session) Select(portalIdx []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectLocked(portalIdx)
}

func (s *Session) selectLocked(portalIdx []int) {
	selected := make([]int, 0, len(portalIdx))
	for _, i := range portalIdx {
		if i < 0 || i >= len(s.portals) || slices.Contains(selected, i) {
			continue
		}
		selected = append(selected, i)
	}
	s.selectedPortals = selected

	options := s.categoryOptionsLocked()
	kept := s.selectedCategories[:0:0]
	for _, c := range s.selectedCategories {
		if slices.Contains(options, c) {
			kept = append(kept, c)
		}
	}
	s.selectedCategories = kept
}

// categoryOptionsLocked is the sorted union of the selected portals' categories.
func (s *Session) categoryOptionsLocked() []agent.Category {
	var options []agent.Category
	for _, i := range s.selectedPortals {
		for _, c := range s.portals[i].Categories {
			if !slices.Contains(options, c) {
				options = append(options, c)
			}
		}
	}
	slices.Sort(options)
	return options
}

// Download selects portalIdx, keeps the offered categories out of
// categories and runs the download stage. The records belong to the
// response being rendered and are not kept by the session. Without a
// search, a portal or a category nothing happens and false is reported.
func (s *Session) Download(ctx context.Context, stages Stages, portalIdx []int, categories []agent.Category) ([]agent.DownloadRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return nil, false, nil
	}

	s.selectLocked(portalIdx)
	options := s.categoryOptionsLocked()

	var chosen []agent.Category
	for _, c := range categories {
		if slices.Contains(options, c) && !slices.Contains(chosen, c) {
			chosen = append(chosen, c)
		}
	}
	s.selectedCategories = chosen

	if len(s.selectedPortals) == 0 || len(chosen) == 0 {
		return nil, false, nil
	}

	portals := make([]agent.PortalRecord, len(s.selectedPortals))
	for i, idx := range s.selectedPortals {
		portals[i] = s.portals[idx]
	}

	downloads, err := stages.Download(ctx, portals, chosen)
	if err != nil {
		return nil, false, err
	}

	s.state = StateDownloadsComplete
	return downloads, true, nil
}

// Summarize counts succeeded and failed downloads.
func Summarize(records []agent.DownloadRecord) Summary {
	var sum Summary
	for _, d := range records {
		if d.Succeeded() {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}
	return sum
}

// Snapshot is a read-only copy of a session, safe to render after the
// session lock is released.
type Snapshot struct {
	ID                 string
	State              State
	Input              agent.SearchInput
	URLs               []string
	Portals            []agent.PortalRecord
	SelectedPortals    []int
	SelectedCategories []agent.Category
	CategoryOptions    []agent.Category
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:                 s.ID,
		State:              s.state,
		Input:              s.input,
		URLs:               slices.Clone(s.urls),
		Portals:            slices.Clone(s.portals),
		SelectedPortals:    slices.Clone(s.selectedPortals),
		SelectedCategories: slices.Clone(s.selectedCategories),
		CategoryOptions:    s.categoryOptionsLocked(),
	}
}

func (s Snapshot) Searched() bool { return s.State != StateIdle }

func (s Snapshot) CanDownload() bool {
	return len(s.SelectedPortals) > 0 && len(s.CategoryOptions) > 0
}

func (s Snapshot) IsPortalSelected(i int) bool {
	return slices.Contains(s.SelectedPortals, i)
}

func (s Snapshot) IsCategorySelected(c agent.Category) bool {
	return slices.Contains(s.SelectedCategories, c)
}
