package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/anuris-ai/anuris/internal/events"
	"github.com/anuris-ai/anuris/internal/tasks"
)

// Runner executes a freshly spawned teammate. The coordinator stays agnostic
// of how a teammate actually runs; the agent layer injects one.
type Runner func(ctx context.Context, rec *TeammateRecord, prompt string) error

// Coordinator ties the roster, inboxes, governance log and the shared task
// board into one team surface. All state lives on disk, so several
// coordinator instances in different processes see the same team.
type Coordinator struct {
	Roster     *Roster
	Inbox      *Inbox
	Governance *Governance

	tasks  *tasks.Store
	runner Runner
	bus    *events.Bus
	log    *slog.Logger

	wg sync.WaitGroup
}

// NewCoordinator opens team state under teamDir and attaches the shared
// task store.
func NewCoordinator(teamDir string, taskStore *tasks.Store, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		Roster:     NewRoster(filepath.Join(teamDir, "roster")),
		Inbox:      NewInbox(filepath.Join(teamDir, "inbox")),
		Governance: NewGovernance(filepath.Join(teamDir, "governance")),
		tasks:      taskStore,
		log:        log,
	}
}

// SetRunner installs the teammate execution hook.
func (c *Coordinator) SetRunner(r Runner) { c.runner = r }

// SetBus attaches an event bus for teammate lifecycle events.
func (c *Coordinator) SetBus(b *events.Bus) { c.bus = b }

func (c *Coordinator) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

// Tasks exposes the shared task store the coordinator claims from.
func (c *Coordinator) Tasks() *tasks.Store { return c.tasks }

// Spawn registers a new teammate and, when a runner is installed, starts it
// with the given prompt. The spawner's capability class is checked first:
// only a lead may create teammates.
func (c *Coordinator) Spawn(ctx context.Context, spawnerName string, spawnerType AgentType, name string, agentType AgentType, prompt string) (*TeammateRecord, error) {
	if !CanSpawn(spawnerType, agentType) {
		return nil, fmt.Errorf("spawn %q as %s: %w", name, agentType, ErrCapabilityDenied)
	}
	rec, err := c.Roster.Register(name, agentType)
	if err != nil {
		return nil, err
	}
	c.publish(events.TeammateSpawned(spawnerName, name, string(agentType)))
	if c.runner == nil {
		return rec, nil
	}
	if _, err := c.Roster.SetStatus(name, StatusActive); err != nil {
		return nil, err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.runner(ctx, rec, prompt); err != nil {
			c.log.Error("teammate run failed", "teammate", name, "error", err)
			if _, serr := c.Roster.SetStatus(name, StatusBlocked); serr != nil {
				c.log.Error("teammate status update failed", "teammate", name, "error", serr)
			}
			if spawnerName != "" {
				body := fmt.Sprintf("teammate %s failed: %v", name, err)
				if _, derr := c.Inbox.Deliver(name, spawnerName, body, MessageSystem); derr != nil {
					c.log.Warn("failure notification not delivered", "teammate", name, "error", derr)
				}
			}
			c.publish(events.TeammateDone(name, true))
			return
		}
		if _, serr := c.Roster.SetStatus(name, StatusIdle); serr != nil {
			c.log.Error("teammate status update failed", "teammate", name, "error", serr)
		}
		c.publish(events.TeammateDone(name, false))
	}()
	return rec, nil
}

// Send delivers a direct message. The recipient must be on the roster and
// not tombstoned.
func (c *Coordinator) Send(from, to, body string) (*InboxMessage, error) {
	rec, err := c.Roster.Get(to)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusShutdownConfirmed {
		return nil, fmt.Errorf("send to %q: teammate has shut down", to)
	}
	return c.Inbox.Deliver(from, to, body, MessageChat)
}

// Broadcast delivers body to every non-tombstoned teammate except the
// sender. Returns the number of recipients.
func (c *Coordinator) Broadcast(from, body string) (int, error) {
	recs, err := c.Roster.Active()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range recs {
		if rec.Name == from {
			continue
		}
		if _, err := c.Inbox.Deliver(from, rec.Name, body, MessageBroadcast); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ReadInbox drains the caller's inbox and refreshes its roster heartbeat.
func (c *Coordinator) ReadInbox(name string) ([]InboxMessage, error) {
	msgs, err := c.Inbox.Drain(name)
	if err != nil {
		return nil, err
	}
	if err := c.Roster.Touch(name); err != nil {
		c.log.Debug("roster touch failed", "teammate", name, "error", err)
	}
	return msgs, nil
}

// ClaimNext claims the oldest claimable task for owner on the shared board
// and notifies from's lead only after the claim is durable. Returns nil
// when nothing is claimable.
func (c *Coordinator) ClaimNext(owner, notifyTo string) (*tasks.Task, error) {
	var claimed *tasks.Task
	err := tasks.WithRetry(func() error {
		list, err := c.tasks.List(tasks.ListFilter{Status: tasks.StatusPending})
		if err != nil {
			return err
		}
		for _, t := range list {
			if t.Owner != "" {
				continue
			}
			got, err := c.tasks.Claim(t.ID, owner)
			if err != nil {
				if errors.Is(err, tasks.ErrAlreadyClaimed) || errors.Is(err, tasks.ErrDependencyUnmet) {
					continue
				}
				return err
			}
			claimed = got
			return nil
		}
		return nil
	})
	if err != nil || claimed == nil {
		return nil, err
	}
	if notifyTo != "" {
		body := fmt.Sprintf("%s claimed %s: %s", owner, claimed.ID, claimed.Subject)
		if _, err := c.Inbox.Deliver(owner, notifyTo, body, MessageTaskNote); err != nil {
			c.log.Warn("claim notification failed", "task", claimed.ID, "error", err)
		}
	}
	return claimed, nil
}

// RequestShutdown records a shutdown request and notifies the target.
func (c *Coordinator) RequestShutdown(requester, target, reason string) (*ShutdownRequest, error) {
	if _, err := c.Roster.Get(target); err != nil {
		return nil, err
	}
	req, err := c.Governance.RequestShutdown(requester, target, reason)
	if err != nil {
		return nil, err
	}
	if _, err := c.Roster.SetStatus(target, StatusShutdownRequested); err != nil {
		return nil, err
	}
	body := fmt.Sprintf("shutdown requested (%s): %s", req.ID, reason)
	if _, err := c.Inbox.Deliver(requester, target, body, MessageSystem); err != nil {
		c.log.Warn("shutdown notification failed", "request", req.ID, "error", err)
	}
	return req, nil
}

// DecideShutdown resolves a pending shutdown request. Confirmation
// tombstones the roster entry; denial returns the teammate to active.
func (c *Coordinator) DecideShutdown(id string, confirm bool) (*ShutdownRequest, error) {
	req, err := c.Governance.DecideShutdown(id, confirm)
	if err != nil {
		return nil, err
	}
	status := StatusActive
	if confirm {
		status = StatusShutdownConfirmed
	}
	if _, err := c.Roster.SetStatus(req.Target, status); err != nil {
		return nil, err
	}
	return req, nil
}

// Wait blocks until all spawned teammates have returned. Used at session
// teardown and in tests.
func (c *Coordinator) Wait() { c.wg.Wait() }
