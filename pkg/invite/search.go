package invite

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yahsan2/enrollctl/pkg/logging"
)

// Source lists invites for a package session
type Source interface {
	ListInvites(ctx context.Context, filter Filter) (*Page, error)
}

// Result is the outcome of one debounced search
type Result struct {
	Query string
	Page  *Page
	Err   error
}

// Searcher runs debounced free-text invite searches for one package session.
// A query supersedes any pending one; requests already sent are not aborted
// but their results are dropped once superseded.
type Searcher struct {
	ctx      context.Context
	source   Source
	base     Filter
	interval time.Duration
	results  chan Result

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	closed bool
}

// NewSearcher creates a searcher bound to ctx
func NewSearcher(ctx context.Context, source Source, packageSessionID string, pageSize int, interval time.Duration) *Searcher {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Searcher{
		ctx:    ctx,
		source: source,
		base: Filter{
			PackageSessionID: packageSessionID,
			Size:             pageSize,
		},
		interval: interval,
		results:  make(chan Result, 1),
	}
}

// Results delivers the latest search result. Closed by Close.
func (s *Searcher) Results() <-chan Result {
	return s.results
}

// Query schedules a search for q after the debounce interval
func (s *Searcher) Query(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, func() {
		s.run(seq, strings.TrimSpace(q))
	})
}

// Search fetches one page immediately, bypassing the debounce
func (s *Searcher) Search(ctx context.Context, q string, page int) (*Page, error) {
	filter := s.base
	filter.Search = strings.TrimSpace(q)
	filter.Page = page
	return s.source.ListInvites(ctx, filter)
}

// Close cancels any pending search and closes Results
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.results)
}

func (s *Searcher) run(seq uint64, q string) {
	page, err := s.Search(s.ctx, q, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.seq {
		logging.From(s.ctx).Debug("dropping superseded invite search", "query", q)
		return
	}

	// keep only the newest result
	select {
	case <-s.results:
	default:
	}
	s.results <- Result{Query: q, Page: page, Err: err}
}
