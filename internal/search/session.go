package search

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// Fetcher is implemented by backend.Client.
type Fetcher interface {
	GetForecast(ctx context.Context, city string) (models.ForecastResponse, error)
}

// Session serializes state changes for one user. Overlapping searches are allowed:
// each new search cancels the previous fetch, and only the latest fetch may settle the state.
type Session struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func NewSession(fetcher Fetcher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{fetcher: fetcher, logger: logger, state: Initial()}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetUnit changes the display unit without fetching.
func (s *Session) SetUnit(unit forecast.Unit) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = WithUnit(s.state, unit)
	return s.state
}

// Search fetches city and returns the state once this fetch settles. A blank city is a
// no-op and makes no call. If a later search starts first, this fetch is canceled and its
// outcome discarded; the returned state then reflects the later search.
func (s *Session) Search(ctx context.Context, city string) State {
	s.mu.Lock()
	next, ok := Submit(s.state, city)
	if !ok {
		cur := s.state
		s.mu.Unlock()
		return cur
	}
	if s.cancel != nil {
		s.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = next
	seq := next.Seq
	s.mu.Unlock()

	data, err := s.fetcher.GetForecast(reqCtx, next.City)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()
	if seq != s.state.Seq {
		s.logger.Debug("discarding stale search result",
			zap.String("city", next.City),
			zap.Uint64("seq", seq),
			zap.Uint64("current_seq", s.state.Seq),
		)
		return s.state
	}
	s.cancel = nil
	if err != nil {
		s.logger.Info("search failed", zap.String("city", next.City), zap.Error(err))
		s.state = Fail(s.state, seq, err)
	} else {
		s.state = Succeed(s.state, seq, data)
	}
	return s.state
}
