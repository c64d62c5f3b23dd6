package heatmap

import "sync"

// SyncBoard guards a Board with a single lock so producers and the update
// loop can run on different goroutines.
type SyncBoard struct {
	mu    sync.Mutex
	board *Board
}

func NewSyncBoard(opts ...Option) *SyncBoard {
	return &SyncBoard{board: NewBoard(opts...)}
}

func (s *SyncBoard) Add(group, series string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Add(group, series, value)
}

func (s *SyncBoard) Declare(group string, rows ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Declare(group, rows...)
}

func (s *SyncBoard) AddValues(group string, values []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.AddValues(group, values)
}

func (s *SyncBoard) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Update()
}

// UpdateView runs Update and captures the resulting view under one lock.
func (s *SyncBoard) UpdateView() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.board.Update()
	return s.board.View(), err
}

func (s *SyncBoard) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.View()
}

func (s *SyncBoard) SetHistory(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.SetHistory(n)
}

func (s *SyncBoard) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.SetMode(m)
}

func (s *SyncBoard) SetLogScale(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.SetLogScale(on)
}

// Do runs fn with exclusive access to the underlying board.
func (s *SyncBoard) Do(fn func(*Board)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.board)
}
