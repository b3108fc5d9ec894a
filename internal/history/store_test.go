package history

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestStore_AppendAndCurrent(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "alice.json"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if _, index := store.Current(); index != -1 {
		t.Errorf("Current() on empty store index = %d, want -1", index)
	}

	// Append with no conversation creates one.
	store.Append(Turn{Role: "user", Content: "hi"})
	store.Append(Turn{Role: "assistant", Content: "hello"})

	conv, index := store.Current()
	if index != 0 {
		t.Errorf("Current() index = %d, want 0", index)
	}
	if len(conv.Turns) != 2 {
		t.Fatalf("Current() has %d turns, want 2", len(conv.Turns))
	}
	if conv.Turns[0].Role != "user" || conv.Turns[1].Role != "assistant" {
		t.Errorf("Current() turn order = %v", conv.Turns)
	}
}

func TestStore_NewAndSelect(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "alice.json"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	first := store.New("First")
	store.Append(Turn{Role: "user", Content: "one"})
	second := store.New("Second")

	if first != 0 || second != 1 {
		t.Errorf("New() indexes = %d, %d, want 0, 1", first, second)
	}
	if titles := store.List(); len(titles) != 2 || titles[0] != "First" || titles[1] != "Second" {
		t.Errorf("List() = %v", titles)
	}

	if err := store.Select(0); err != nil {
		t.Fatalf("Select(0) error = %v", err)
	}
	conv, index := store.Current()
	if index != 0 || len(conv.Turns) != 1 {
		t.Errorf("Current() after Select = index %d, %d turns", index, len(conv.Turns))
	}

	if err := store.Select(5); !errors.Is(err, ErrNoSuchConversation) {
		t.Errorf("Select(5) error = %v, want ErrNoSuchConversation", err)
	}
	if err := store.Select(-1); !errors.Is(err, ErrNoSuchConversation) {
		t.Errorf("Select(-1) error = %v, want ErrNoSuchConversation", err)
	}
}

func TestStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alice.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	store.New("Trip planning")
	store.Append(Turn{Role: "user", Content: "where to go?"})
	store.Append(Turn{Role: "assistant", Content: "Lisbon"})
	store.New("Second topic")
	store.Append(Turn{Role: "user", Content: "hello"})

	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reload error = %v", err)
	}

	titles := reloaded.List()
	if len(titles) != 2 || titles[0] != "Trip planning" {
		t.Fatalf("List() after reload = %v", titles)
	}

	// The most recent conversation is current after a reload.
	conv, index := reloaded.Current()
	if index != 1 {
		t.Errorf("Current() after reload index = %d, want 1", index)
	}
	if len(conv.Turns) != 1 || conv.Turns[0].Content != "hello" {
		t.Errorf("Current() after reload turns = %v", conv.Turns)
	}

	if err := reloaded.Select(0); err != nil {
		t.Fatalf("Select(0) error = %v", err)
	}
	conv, _ = reloaded.Current()
	if len(conv.Turns) != 2 || conv.Turns[1].Content != "Lisbon" {
		t.Errorf("Select(0) turns = %v", conv.Turns)
	}
}

func TestStore_SetTitle(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "alice.json"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	// No conversation yet: SetTitle is a no-op rather than a panic.
	store.SetTitle("ignored")

	store.New("placeholder")
	store.SetTitle("Real title")
	if titles := store.List(); titles[0] != "Real title" {
		t.Errorf("List() = %v, want Real title", titles)
	}
}
