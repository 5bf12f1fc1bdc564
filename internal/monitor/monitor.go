package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hexwars/replica/pkg/core"
)

// Game reports the live game header. Header is called from the monitor goroutine.
type Game interface {
	Header() core.GameInfo
}

// Journal reports recorder counters.
type Journal interface {
	Stats() (entries, dropped, failed uint64)
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Game       Game
	Journal    Journal
	Pending    func() int // writes queued behind the journal backend, optional
	Logger     *slog.Logger
	StatusPath string
	Interval   time.Duration
}

// Status is one snapshot of replay progress.
type Status struct {
	Time    time.Time `json:"time"`
	GameID  string    `json:"gameId"`
	State   string    `json:"state"`
	Turn    int       `json:"turn"`
	Round   int       `json:"round"`
	InTurn  int       `json:"inTurn"`
	Entries uint64    `json:"entries"`
	Dropped uint64    `json:"dropped"`
	Failed  uint64    `json:"failed"`
	Pending int       `json:"pending"`
}

// Service periodically writes Status to StatusPath and the log.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status collects the current snapshot.
func (s *Service) Status() Status {
	st := Status{Time: time.Now().UTC()}
	if s.deps.Game != nil {
		info := s.deps.Game.Header()
		st.GameID = info.GameID
		st.State = info.State.String()
		st.Turn = info.TurnNumber
		st.Round = info.RoundNumber
		st.InTurn = info.InTurnNumber
	}
	if s.deps.Journal != nil {
		st.Entries, st.Dropped, st.Failed = s.deps.Journal.Stats()
	}
	if s.deps.Pending != nil {
		st.Pending = s.deps.Pending()
	}
	return st
}

// Start launches the monitor goroutine. Starting twice is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			return fmt.Errorf("creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(statusFile, s.stopChan, s.done)
	return nil
}

func (s *Service) run(statusFile *os.File, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if statusFile != nil {
		defer statusFile.Close()
	}
	s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			// final snapshot so the file reflects the end state
			s.report(statusFile)
			return
		case <-ticker.C:
			s.report(statusFile)
		}
	}
}

func (s *Service) report(statusFile *os.File) {
	st := s.Status()
	if st.GameID == "" {
		return
	}
	s.deps.Logger.Debug("Replay status",
		"turn", st.Turn, "round", st.Round, "entries", st.Entries,
		"dropped", st.Dropped, "failed", st.Failed, "pending", st.Pending)

	if statusFile == nil {
		return
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.deps.Logger.Error("Error encoding status", "error", err)
		return
	}
	if err := statusFile.Truncate(0); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
		return
	}
	if _, err := statusFile.WriteAt(append(data, '\n'), 0); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}
}

// Stop ends the monitor and waits for its last report.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
