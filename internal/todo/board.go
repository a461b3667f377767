// Package todo holds the in-session work plan: a small ordered list the
// agent rewrites wholesale as it makes progress.
package todo

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidBoardState is returned when a proposed board violates the
// structural rules. The previous board stays in place.
var ErrInvalidBoardState = errors.New("invalid board state")

// MaxItems bounds the board. A plan longer than this belongs on the task
// board, not the todo list.
const MaxItems = 20

// ItemStatus is the state of a single todo entry.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemDone       ItemStatus = "done"
)

// Item is one line of the plan.
type Item struct {
	Text   string     `json:"text"`
	Status ItemStatus `json:"status"`
}

// Board is the agent's current plan. Writes replace the whole list
// atomically; there is no per-item mutation.
type Board struct {
	mu    sync.RWMutex
	items []Item
}

// NewBoard returns an empty board.
func NewBoard() *Board { return &Board{} }

// Validate checks the structural rules: every item has text, at most one
// item is in progress, and the list fits the size bound.
func Validate(items []Item) error {
	if len(items) > MaxItems {
		return fmt.Errorf("%w: %d items exceeds limit of %d", ErrInvalidBoardState, len(items), MaxItems)
	}
	inProgress := 0
	for i, it := range items {
		if strings.TrimSpace(it.Text) == "" {
			return fmt.Errorf("%w: item %d has empty text", ErrInvalidBoardState, i+1)
		}
		switch it.Status {
		case ItemPending, ItemDone:
		case ItemInProgress:
			inProgress++
		default:
			return fmt.Errorf("%w: item %d has unknown status %q", ErrInvalidBoardState, i+1, it.Status)
		}
	}
	if inProgress > 1 {
		return fmt.Errorf("%w: %d items in progress, at most one allowed", ErrInvalidBoardState, inProgress)
	}
	return nil
}

// Replace swaps in a new plan. The write is all-or-nothing: on validation
// failure the previous board is untouched.
func (b *Board) Replace(items []Item) error {
	if err := Validate(items); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append([]Item(nil), items...)
	return nil
}

// Items returns a copy of the current plan.
func (b *Board) Items() []Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Item(nil), b.items...)
}

// Render formats the board for display and for the model's context.
func (b *Board) Render() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.items) == 0 {
		return "(no todos)"
	}
	var sb strings.Builder
	done := 0
	for _, it := range b.items {
		marker := "[ ]"
		switch it.Status {
		case ItemInProgress:
			marker = "[>]"
		case ItemDone:
			marker = "[x]"
			done++
		}
		fmt.Fprintf(&sb, "%s %s\n", marker, it.Text)
	}
	fmt.Fprintf(&sb, "(%d/%d completed)", done, len(b.items))
	return sb.String()
}
