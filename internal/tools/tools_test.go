package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anuris-ai/anuris/internal/tasks"
	"github.com/anuris-ai/anuris/internal/todo"
)

func TestRegistryDispatchAndUnsupported(t *testing.T) {
	ws := t.TempDir()
	reg, err := NewRegistry(NewReadFileTool(ws), NewGlobTool(ws))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(ws, "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	out, err := reg.Invoke(ctx, "read_file", `{"path":"hello.txt"}`)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "hi" {
		t.Fatalf("unexpected output: %q", out)
	}

	if _, err := reg.Invoke(ctx, "launch_rocket", `{}`); !errors.Is(err, ErrUnsupportedTool) {
		t.Fatalf("want ErrUnsupportedTool, got %v", err)
	}

	infos, err := reg.Infos(ctx)
	if err != nil {
		t.Fatalf("infos: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "glob" || infos[1].Name != "read_file" {
		t.Fatalf("unexpected infos: %+v", infos)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	ws := t.TempDir()
	if _, err := NewRegistry(NewGlobTool(ws), NewGlobTool(ws)); err == nil {
		t.Fatal("duplicate tool name accepted")
	}
}

func TestReadOnlyDropsMutatingTools(t *testing.T) {
	ws := t.TempDir()
	reg, err := NewRegistry(
		NewReadFileTool(ws),
		NewWriteFileTool(ws),
		NewBashTool(ws, 0),
		NewGlobTool(ws),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	names := reg.ReadOnly().Names()
	want := []string{"glob", "read_file"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("unexpected read-only set: %v", names)
	}
}

func TestWorkspaceEscapeRejected(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()
	read := NewReadFileTool(ws)
	if _, err := read.InvokableRun(ctx, `{"path":"../outside.txt"}`); err == nil {
		t.Fatal("escape via .. accepted")
	}
	if _, err := read.InvokableRun(ctx, `{"path":"/etc/hostname"}`); err == nil {
		t.Fatal("absolute path outside workspace accepted")
	}
	write := NewWriteFileTool(ws)
	if _, err := write.InvokableRun(ctx, `{"path":"../../evil","content":"x"}`); err == nil {
		t.Fatal("write escape accepted")
	}
}

func TestWriteThenEditFile(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()

	write := NewWriteFileTool(ws)
	if _, err := write.InvokableRun(ctx, `{"path":"pkg/a.txt","content":"alpha beta alpha"}`); err != nil {
		t.Fatalf("write: %v", err)
	}

	edit := NewEditFileTool(ws)
	if _, err := edit.InvokableRun(ctx, `{"path":"pkg/a.txt","old_text":"alpha","new_text":"gamma"}`); err == nil {
		t.Fatal("ambiguous old_text accepted")
	}
	if _, err := edit.InvokableRun(ctx, `{"path":"pkg/a.txt","old_text":"beta","new_text":"delta"}`); err != nil {
		t.Fatalf("edit: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(ws, "pkg", "a.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "alpha delta alpha" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestTodoWriteToolValidates(t *testing.T) {
	board := todo.NewBoard()
	tw := NewTodoWriteTool(board)
	ctx := context.Background()

	out, err := tw.InvokableRun(ctx, `{"items":[{"text":"plan","status":"done"},{"text":"build","status":"in_progress"}]}`)
	if err != nil {
		t.Fatalf("todo_write: %v", err)
	}
	if !strings.Contains(out, "(1/2 completed)") {
		t.Fatalf("render missing tally: %q", out)
	}

	_, err = tw.InvokableRun(ctx, `{"items":[{"text":"a","status":"in_progress"},{"text":"b","status":"in_progress"}]}`)
	if !errors.Is(err, todo.ErrInvalidBoardState) {
		t.Fatalf("want ErrInvalidBoardState, got %v", err)
	}
	// Board kept the last valid plan.
	if got := board.Render(); !strings.Contains(got, "[>] build") {
		t.Fatalf("board lost valid state: %q", got)
	}
}

func TestTaskToolsRoundTrip(t *testing.T) {
	store := tasks.NewStore(t.TempDir())
	ctx := context.Background()

	create := NewTaskCreateTool(store)
	out, err := create.InvokableRun(ctx, `{"subject":"write docs"}`)
	if err != nil {
		t.Fatalf("task_create: %v", err)
	}
	if !strings.Contains(out, "write docs") {
		t.Fatalf("unexpected create output: %q", out)
	}

	list, _ := store.List(tasks.ListFilter{})
	if len(list) != 1 {
		t.Fatalf("task not stored: %+v", list)
	}
	id := list[0].ID

	claim := NewTaskClaimTool(store, "ada")
	if _, err := claim.InvokableRun(ctx, `{"id":"`+id+`"}`); err != nil {
		t.Fatalf("task_claim: %v", err)
	}
	got, _ := store.Get(id)
	if got.Owner != "ada" {
		t.Fatalf("claim not applied: %+v", got)
	}

	other := NewTaskClaimTool(store, "grace")
	if _, err := other.InvokableRun(ctx, `{"id":"`+id+`"}`); err == nil {
		t.Fatal("second claim accepted")
	}
}

func TestTaskUpdateToolReportsUnmetDependency(t *testing.T) {
	store := tasks.NewStore(t.TempDir())
	ctx := context.Background()

	create := NewTaskCreateTool(store)
	if _, err := create.InvokableRun(ctx, `{"subject":"build"}`); err != nil {
		t.Fatalf("task_create: %v", err)
	}
	list, _ := store.List(tasks.ListFilter{})
	dep := list[0].ID
	if _, err := create.InvokableRun(ctx, `{"subject":"deploy","depends_on":["`+dep+`"]}`); err != nil {
		t.Fatalf("task_create: %v", err)
	}
	list, _ = store.List(tasks.ListFilter{})
	var blocked string
	for _, task := range list {
		if task.Subject == "deploy" {
			blocked = task.ID
		}
	}

	update := NewTaskUpdateTool(store)
	_, err := update.InvokableRun(ctx, `{"id":"`+blocked+`","status":"in_progress"}`)
	if !errors.Is(err, tasks.ErrDependencyUnmet) {
		t.Fatalf("want ErrDependencyUnmet, got %v", err)
	}
	// The error text is what reaches the model as a tool result, so it
	// must name the blocking task.
	if !strings.Contains(err.Error(), dep) {
		t.Fatalf("error does not name the blocking task: %v", err)
	}

	if _, err := update.InvokableRun(ctx, `{"id":"`+dep+`","status":"done"}`); err != nil {
		t.Fatalf("finish dependency: %v", err)
	}
	out, err := update.InvokableRun(ctx, `{"id":"`+blocked+`","status":"in_progress"}`)
	if err != nil {
		t.Fatalf("update after dependency done: %v", err)
	}
	if !strings.Contains(out, "[>]") {
		t.Fatalf("unexpected update output: %q", out)
	}
}

func TestBashToolReportsExitCode(t *testing.T) {
	bash := NewBashTool(t.TempDir(), 0)
	ctx := context.Background()

	out, err := bash.InvokableRun(ctx, `{"command":"echo hello"}`)
	if err != nil {
		t.Fatalf("bash: %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Fatalf("output lost: %q", out)
	}

	out, err = bash.InvokableRun(ctx, `{"command":"exit 3"}`)
	if err != nil {
		t.Fatalf("non-zero exit should not be a Go error: %v", err)
	}
	if !strings.Contains(out, "exit code 3") {
		t.Fatalf("exit code not reported: %q", out)
	}
}
