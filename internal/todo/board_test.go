package todo

import (
	"errors"
	"strings"
	"testing"
)

func TestReplaceAndRender(t *testing.T) {
	b := NewBoard()
	err := b.Replace([]Item{
		{Text: "read the config", Status: ItemDone},
		{Text: "wire the loader", Status: ItemInProgress},
		{Text: "add tests", Status: ItemPending},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	out := b.Render()
	for _, want := range []string{"[x] read the config", "[>] wire the loader", "[ ] add tests", "(1/3 completed)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRejectTwoInProgress(t *testing.T) {
	b := NewBoard()
	if err := b.Replace([]Item{{Text: "ok", Status: ItemPending}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	err := b.Replace([]Item{
		{Text: "first", Status: ItemInProgress},
		{Text: "second", Status: ItemInProgress},
	})
	if !errors.Is(err, ErrInvalidBoardState) {
		t.Fatalf("want ErrInvalidBoardState, got %v", err)
	}
	// Failed replace must not clobber the previous board.
	items := b.Items()
	if len(items) != 1 || items[0].Text != "ok" {
		t.Fatalf("board mutated by rejected write: %+v", items)
	}
}

func TestRejectEmptyTextAndUnknownStatus(t *testing.T) {
	if err := Validate([]Item{{Text: "  ", Status: ItemPending}}); !errors.Is(err, ErrInvalidBoardState) {
		t.Fatalf("empty text accepted: %v", err)
	}
	if err := Validate([]Item{{Text: "x", Status: "paused"}}); !errors.Is(err, ErrInvalidBoardState) {
		t.Fatalf("unknown status accepted: %v", err)
	}
}

func TestRejectOversizedBoard(t *testing.T) {
	items := make([]Item, MaxItems+1)
	for i := range items {
		items[i] = Item{Text: "item", Status: ItemPending}
	}
	if err := Validate(items); !errors.Is(err, ErrInvalidBoardState) {
		t.Fatalf("oversized board accepted: %v", err)
	}
	if err := Validate(items[:MaxItems]); err != nil {
		t.Fatalf("boundary board rejected: %v", err)
	}
}

func TestEmptyBoardRender(t *testing.T) {
	b := NewBoard()
	if got := b.Render(); got != "(no todos)" {
		t.Fatalf("unexpected render: %q", got)
	}
	if err := b.Replace(nil); err != nil {
		t.Fatalf("clearing the board should be valid: %v", err)
	}
}
