package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoSuchConversation is returned when a conversation index is out of range.
var ErrNoSuchConversation = errors.New("no such conversation")

// Turn is one message within a conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Conversation is an append-only ordered sequence of turns with a derived title.
type Conversation struct {
	Title string `json:"title"`
	Turns []Turn `json:"turns"`
}

// fileFormat is the on-disk JSON document: parallel lists of titles and
// turn histories. No schema versioning.
type fileFormat struct {
	Titles    []string `json:"titles"`
	Histories [][]Turn `json:"histories"`
}

// Store keeps the multi-conversation history for one user and mirrors it to
// a JSON file after every assistant turn. The in-memory list is keyed by
// index; a single writer (the owning chat session) is assumed, but the lock
// keeps concurrent HTTP handlers safe.
type Store struct {
	mu            sync.Mutex
	path          string
	conversations []Conversation
	current       int
}

// NewStore creates a store persisting to path. If the file already exists,
// its conversations are loaded; a missing file starts empty.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, current: -1}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	for i, turns := range file.Histories {
		title := ""
		if i < len(file.Titles) {
			title = file.Titles[i]
		}
		s.conversations = append(s.conversations, Conversation{Title: title, Turns: turns})
	}
	if len(s.conversations) > 0 {
		s.current = len(s.conversations) - 1
	}
	return s, nil
}

// List returns the conversation titles in order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, len(s.conversations))
	for i, c := range s.conversations {
		titles[i] = c.Title
	}
	return titles
}

// Current returns a copy of the active conversation and its index.
// The index is -1 when no conversation exists yet.
func (s *Store) Current() (Conversation, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.conversations) {
		return Conversation{}, -1
	}
	c := s.conversations[s.current]
	turns := make([]Turn, len(c.Turns))
	copy(turns, c.Turns)
	return Conversation{Title: c.Title, Turns: turns}, s.current
}

// New starts a new empty conversation and makes it current.
func (s *Store) New(title string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append(s.conversations, Conversation{Title: title})
	s.current = len(s.conversations) - 1
	return s.current
}

// Select switches the current conversation by index.
func (s *Store) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.conversations) {
		return fmt.Errorf("conversation index %d: %w", index, ErrNoSuchConversation)
	}
	s.current = index
	return nil
}

// Append records a turn on the current conversation, creating one if needed.
// Turns are append-only; the title is derived lazily by SetTitle.
func (s *Store) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.conversations) {
		s.conversations = append(s.conversations, Conversation{})
		s.current = len(s.conversations) - 1
	}
	c := &s.conversations[s.current]
	c.Turns = append(c.Turns, turn)
}

// SetTitle sets the current conversation's title.
func (s *Store) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current >= 0 && s.current < len(s.conversations) {
		s.conversations[s.current].Title = title
	}
}

// Save writes the full history to disk. The write is atomic (temp file +
// rename) so a crash mid-write cannot lose previously recorded turns.
func (s *Store) Save() error {
	s.mu.Lock()
	file := fileFormat{
		Titles:    make([]string, len(s.conversations)),
		Histories: make([][]Turn, len(s.conversations)),
	}
	for i, c := range s.conversations {
		file.Titles[i] = c.Title
		file.Histories[i] = c.Turns
	}
	s.mu.Unlock()

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
