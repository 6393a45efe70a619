// Package resume persists scan progress so an interrupted date range can be
// continued later without probing completed targets again.
package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// State tracks which targets finished without error and which of them
// were found.
type State struct {
	Session       string   `json:"session"`
	Template      string   `json:"template"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
	CompletedURLs []string `json:"completed_urls"`
	FoundURLs     []string `json:"found_urls"`

	mu   sync.Mutex
	path string
	done map[string]struct{}
}

// New creates an empty resume state that will be saved to path.
func New(path, session, template, start, end string) *State {
	return &State{
		Session:  session,
		Template: template,
		Start:    start,
		End:      end,
		path:     path,
		done:     make(map[string]struct{}),
	}
}

// Load reads an existing resume state from disk. It returns nil, nil if the
// file does not exist.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing resume file: %w", err)
	}

	s.path = path
	s.done = make(map[string]struct{}, len(s.CompletedURLs))
	for _, u := range s.CompletedURLs {
		s.done[u] = struct{}{}
	}
	return &s, nil
}

// Matches reports whether the state was recorded for the same template and
// date range.
func (s *State) Matches(template, start, end string) bool {
	return s.Template == template && s.Start == start && s.End == end
}

// MarkCompleted records a target as done. Found targets are also added to
// the found list.
func (s *State) MarkCompleted(url string, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.done[url]; ok {
		return
	}
	s.done[url] = struct{}{}
	s.CompletedURLs = append(s.CompletedURLs, url)
	if found {
		s.FoundURLs = append(s.FoundURLs, url)
	}
}

// Found returns a copy of the found URLs recorded so far.
func (s *State) Found() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.FoundURLs))
	copy(out, s.FoundURLs)
	return out
}

// FilterRemaining returns the targets that have not been completed yet,
// keeping their order and duplicates.
func (s *State) FilterRemaining(targets []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, ok := s.done[t]; !ok {
			remaining = append(remaining, t)
		}
	}
	return remaining
}

// Save writes the current state to disk.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing resume state: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

// Remove deletes the resume file (called after a scan that was not
// interrupted).
func (s *State) Remove() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
