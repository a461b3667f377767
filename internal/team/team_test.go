package team

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/anuris-ai/anuris/internal/storage/dirstore"
	"github.com/anuris-ai/anuris/internal/tasks"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	dir := t.TempDir()
	ts := tasks.NewStore(filepath.Join(dir, "tasks"))
	return NewCoordinator(filepath.Join(dir, "team"), ts, slog.Default())
}

func TestRosterRegisterAndList(t *testing.T) {
	r := NewRoster(t.TempDir())
	if _, err := r.Register("ada", AgentBuilder); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register("ada", AgentExplorer); err == nil {
		t.Fatal("duplicate name accepted")
	}
	if _, err := r.Register("", AgentBuilder); err == nil {
		t.Fatal("empty name accepted")
	}
	if _, err := r.Register("eve", "wizard"); err == nil {
		t.Fatal("unknown agent type accepted")
	}
	if _, err := r.Register("grace", AgentExplorer); err != nil {
		t.Fatalf("register: %v", err)
	}
	list, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "ada" || list[1].Name != "grace" {
		t.Fatalf("unexpected roster: %+v", list)
	}
}

func TestRosterRegisterPersists(t *testing.T) {
	dir := t.TempDir()
	r := NewRoster(dir)
	if _, err := r.Register("ada", AgentBuilder); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A second roster over the same directory must see the record.
	rec, err := NewRoster(dir).Get("ada")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if rec.AgentType != AgentBuilder || rec.Status != StatusIdle {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestRosterTombstoneStays(t *testing.T) {
	r := NewRoster(t.TempDir())
	if _, err := r.Register("ada", AgentBuilder); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.SetStatus("ada", StatusShutdownConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	// Tombstones stay listed but leave the active set.
	list, _ := r.List()
	if len(list) != 1 {
		t.Fatalf("tombstone removed from roster: %+v", list)
	}
	active, _ := r.Active()
	if len(active) != 0 {
		t.Fatalf("tombstone still active: %+v", active)
	}
	if _, err := r.SetStatus("ada", StatusIdle); err == nil {
		t.Fatal("revived a tombstoned teammate")
	}
	if _, err := r.Register("ada", AgentBuilder); err == nil {
		t.Fatal("tombstoned name reused")
	}
}

func TestInboxDrainExactlyOnce(t *testing.T) {
	in := NewInbox(t.TempDir())
	if _, err := in.Deliver("lead", "ada", "first", MessageChat); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := in.Deliver("lead", "ada", "second", MessageChat); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	got, err := in.Drain("ada")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(got) != 2 || got[0].Body != "first" || got[1].Body != "second" {
		t.Fatalf("unexpected drain: %+v", got)
	}
	for _, m := range got {
		if !m.Consumed {
			t.Fatalf("drained message returned unconsumed: %+v", m)
		}
	}

	again, err := in.Drain("ada")
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("messages surfaced twice: %+v", again)
	}

	if _, err := in.Deliver("lead", "ada", "third", MessageChat); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	got, err = in.Drain("ada")
	if err != nil {
		t.Fatalf("third drain: %v", err)
	}
	if len(got) != 1 || got[0].Body != "third" {
		t.Fatalf("new message lost: %+v", got)
	}

	hist, err := in.History("ada")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history truncated: %+v", hist)
	}
	for _, m := range hist {
		if !m.Consumed {
			t.Fatalf("drained message not marked consumed: %+v", m)
		}
	}
}

func TestInboxPeekHasNoSideEffect(t *testing.T) {
	in := NewInbox(t.TempDir())
	if _, err := in.Deliver("lead", "ada", "hello", MessageChat); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if peeked, _ := in.Peek("ada"); len(peeked) != 1 {
		t.Fatalf("peek missed message: %+v", peeked)
	}
	if got, _ := in.Drain("ada"); len(got) != 1 {
		t.Fatal("peek consumed the message")
	}
}

func TestInboxEmptyRecipient(t *testing.T) {
	in := NewInbox(t.TempDir())
	if _, err := in.Deliver("lead", "", "hello", MessageChat); err == nil {
		t.Fatal("empty recipient accepted")
	}
	got, err := in.Drain("ghost")
	if err != nil {
		t.Fatalf("drain missing inbox: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("drain invented messages: %+v", got)
	}
}

func TestGovernancePlanLifecycle(t *testing.T) {
	g := NewGovernance(t.TempDir())
	req, err := g.SubmitPlan("ada", "refactor the parser")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.ID != "pr-1" || req.Status != PlanSubmitted {
		t.Fatalf("unexpected request: %+v", req)
	}

	decided, err := g.DecidePlan(req.ID, true, "looks good")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != PlanApproved || decided.DecidedAt == nil {
		t.Fatalf("unexpected decision: %+v", decided)
	}

	if _, err := g.DecidePlan(req.ID, false, "changed my mind"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("want ErrAlreadyDecided, got %v", err)
	}
	// The stored state must survive the failed second decision.
	plans, _ := g.ListPlans(PlanApproved)
	if len(plans) != 1 || plans[0].Reason != "looks good" {
		t.Fatalf("decision mutated after rejection: %+v", plans)
	}

	if _, err := g.DecidePlan("pr-99", true, ""); !errors.Is(err, dirstore.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGovernanceShutdownLifecycle(t *testing.T) {
	g := NewGovernance(t.TempDir())
	req, err := g.RequestShutdown("lead", "ada", "work complete")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.ID != "sr-1" || req.Status != ShutdownRequested {
		t.Fatalf("unexpected request: %+v", req)
	}
	if _, err := g.RequestShutdown("lead", "ada", "again"); err == nil {
		t.Fatal("duplicate pending request accepted")
	}

	decided, err := g.DecideShutdown(req.ID, true)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != ShutdownConfirmed {
		t.Fatalf("unexpected decision: %+v", decided)
	}
	if _, err := g.DecideShutdown(req.ID, false); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("want ErrAlreadyDecided, got %v", err)
	}
}

func TestSpawnCapabilityGate(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.Spawn(ctx, "ada", AgentBuilder, "ada", AgentExplorer, "look around"); !errors.Is(err, ErrCapabilityDenied) {
		t.Fatalf("want ErrCapabilityDenied, got %v", err)
	}
	if _, err := c.Spawn(ctx, "lead", AgentLead, "ada", AgentLead, "take over"); !errors.Is(err, ErrCapabilityDenied) {
		t.Fatalf("lead spawned a lead: %v", err)
	}
	rec, err := c.Spawn(ctx, "lead", AgentLead, "ada", AgentBuilder, "build it")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if rec.Status != StatusIdle {
		t.Fatalf("spawn without runner should stay idle: %+v", rec)
	}
}

func TestSpawnRunnerFailureNotifiesSpawner(t *testing.T) {
	c := newTestCoordinator(t)
	c.SetRunner(func(ctx context.Context, rec *TeammateRecord, prompt string) error {
		return errors.New("model exploded")
	})

	if _, err := c.Spawn(context.Background(), "lead", AgentLead, "ada", AgentBuilder, "build it"); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	c.Wait()

	rec, err := c.Roster.Get("ada")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != StatusBlocked {
		t.Fatalf("failed teammate should be blocked, got %s", rec.Status)
	}
	msgs, err := c.Inbox.Drain("lead")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Type != MessageSystem {
		t.Fatalf("spawner not notified: %+v", msgs)
	}
}

func TestBroadcastSkipsSenderAndTombstones(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	for _, name := range []string{"ada", "grace", "linus"} {
		if _, err := c.Spawn(ctx, "lead", AgentLead, name, AgentBuilder, ""); err != nil {
			t.Fatalf("spawn %s: %v", name, err)
		}
	}
	if _, err := c.Roster.SetStatus("linus", StatusShutdownConfirmed); err != nil {
		t.Fatalf("tombstone: %v", err)
	}

	n, err := c.Broadcast("ada", "standup in five")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 recipient, got %d", n)
	}
	msgs, _ := c.Inbox.Drain("grace")
	if len(msgs) != 1 || msgs[0].Type != MessageBroadcast {
		t.Fatalf("grace missed the broadcast: %+v", msgs)
	}
	if msgs, _ := c.Inbox.Drain("ada"); len(msgs) != 0 {
		t.Fatalf("sender received own broadcast: %+v", msgs)
	}
	if msgs, _ := c.Inbox.Drain("linus"); len(msgs) != 0 {
		t.Fatalf("tombstone received broadcast: %+v", msgs)
	}
}

func TestSendToTombstoneFails(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.Spawn(ctx, "lead", AgentLead, "ada", AgentBuilder, ""); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if _, err := c.Roster.SetStatus("ada", StatusShutdownConfirmed); err != nil {
		t.Fatalf("tombstone: %v", err)
	}
	if _, err := c.Send("lead", "ada", "hello?"); err == nil {
		t.Fatal("send to tombstone succeeded")
	}
}

func TestClaimNextNotifiesAfterClaim(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.Spawn(ctx, "lead", AgentLead, "lead", AgentBuilder, ""); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if _, err := c.Spawn(ctx, "lead", AgentLead, "ada", AgentBuilder, ""); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	t1, err := c.Tasks().Create("first job", "", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	t2, err := c.Tasks().Create("second job", "", []string{t1.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := c.ClaimNext("ada", "lead")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got == nil || got.ID != t1.ID {
		t.Fatalf("claimed wrong task: %+v", got)
	}
	stored, _ := c.Tasks().Get(t1.ID)
	if stored.Owner != "ada" {
		t.Fatalf("claim not durable: %+v", stored)
	}
	msgs, _ := c.Inbox.Drain("lead")
	if len(msgs) != 1 || msgs[0].Type != MessageTaskNote {
		t.Fatalf("claim notification missing: %+v", msgs)
	}

	// The only remaining task is blocked on t1, so nothing is claimable.
	got, err = c.ClaimNext("ada", "lead")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got != nil {
		t.Fatalf("claimed a blocked task: %+v (deps %v)", got, t2.DependsOn)
	}
}

func TestShutdownFlowTombstonesTarget(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.Spawn(ctx, "lead", AgentLead, "ada", AgentBuilder, ""); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	req, err := c.RequestShutdown("lead", "ada", "done here")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	rec, _ := c.Roster.Get("ada")
	if rec.Status != StatusShutdownRequested {
		t.Fatalf("target not marked: %+v", rec)
	}
	// Target sees the request in its inbox.
	msgs, _ := c.Inbox.Drain("ada")
	if len(msgs) != 1 || msgs[0].Type != MessageSystem {
		t.Fatalf("shutdown notice missing: %+v", msgs)
	}

	if _, err := c.DecideShutdown(req.ID, true); err != nil {
		t.Fatalf("decide: %v", err)
	}
	rec, _ = c.Roster.Get("ada")
	if rec.Status != StatusShutdownConfirmed {
		t.Fatalf("target not tombstoned: %+v", rec)
	}
	if _, err := c.DecideShutdown(req.ID, false); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("want ErrAlreadyDecided, got %v", err)
	}
}
