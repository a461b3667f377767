package team

import (
	"errors"
	"fmt"
	"time"

	"github.com/anuris-ai/anuris/internal/storage/dirstore"
)

// ErrAlreadyDecided is returned when a decision is submitted for a
// governance request that already reached a terminal state. The first
// decision wins; later ones fail without changing anything.
var ErrAlreadyDecided = errors.New("request already decided")

// PlanStatus is the lifecycle of a plan approval request.
type PlanStatus string

const (
	PlanSubmitted PlanStatus = "submitted"
	PlanApproved  PlanStatus = "approved"
	PlanRejected  PlanStatus = "rejected"
)

// ShutdownStatus is the lifecycle of a shutdown request.
type ShutdownStatus string

const (
	ShutdownRequested ShutdownStatus = "requested"
	ShutdownConfirmed ShutdownStatus = "confirmed"
	ShutdownDenied    ShutdownStatus = "denied"
)

// PlanRequest is a teammate's proposed plan awaiting a lead decision.
type PlanRequest struct {
	ID        string     `json:"id"`
	Requester string     `json:"requester"`
	Plan      string     `json:"plan"`
	Status    PlanStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// ShutdownRequest asks a teammate to wind down. The target confirms or the
// lead denies; confirmation tombstones the roster entry.
type ShutdownRequest struct {
	ID        string         `json:"id"`
	Requester string         `json:"requester"`
	Target    string         `json:"target"`
	Reason    string         `json:"reason,omitempty"`
	Status    ShutdownStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
}

const (
	plansFile     = "plans.jsonl"
	shutdownsFile = "shutdowns.jsonl"
)

// Governance persists plan and shutdown requests as rewriteable JSONL logs.
type Governance struct {
	ds *dirstore.DirStore
}

// NewGovernance opens the governance store rooted at baseDir.
func NewGovernance(baseDir string) *Governance {
	return &Governance{ds: dirstore.New(baseDir, "governance")}
}

// SubmitPlan records a new plan request in the submitted state. IDs are
// monotonic per store so transcripts can reference them unambiguously.
func (g *Governance) SubmitPlan(requester, plan string) (*PlanRequest, error) {
	if plan == "" {
		return nil, fmt.Errorf("submit plan: empty plan")
	}
	if err := g.ds.Acquire(); err != nil {
		return nil, err
	}
	defer g.ds.Release()

	all, err := dirstore.LoadJSONL[PlanRequest](g.ds, plansFile)
	if err != nil {
		return nil, fmt.Errorf("submit plan: %w", err)
	}
	req := &PlanRequest{
		ID:        fmt.Sprintf("pr-%d", len(all)+1),
		Requester: requester,
		Plan:      plan,
		Status:    PlanSubmitted,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.ds.AppendJSONL(plansFile, req); err != nil {
		return nil, fmt.Errorf("submit plan: %w", err)
	}
	return req, nil
}

// DecidePlan approves or rejects a submitted plan. Deciding a request twice
// returns ErrAlreadyDecided and leaves the stored state untouched.
func (g *Governance) DecidePlan(id string, approve bool, reason string) (*PlanRequest, error) {
	if err := g.ds.Acquire(); err != nil {
		return nil, err
	}
	defer g.ds.Release()

	all, err := dirstore.LoadJSONL[PlanRequest](g.ds, plansFile)
	if err != nil {
		return nil, fmt.Errorf("decide plan %q: %w", id, err)
	}
	idx := -1
	for i := range all {
		if all[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("decide plan %q: %w", id, dirstore.ErrNotFound)
	}
	if all[idx].Status != PlanSubmitted {
		return nil, fmt.Errorf("decide plan %q: %w", id, ErrAlreadyDecided)
	}
	now := time.Now().UTC()
	if approve {
		all[idx].Status = PlanApproved
	} else {
		all[idx].Status = PlanRejected
	}
	all[idx].Reason = reason
	all[idx].DecidedAt = &now
	if err := dirstore.WriteJSONL(g.ds, plansFile, all); err != nil {
		return nil, fmt.Errorf("decide plan %q: %w", id, err)
	}
	out := all[idx]
	return &out, nil
}

// ListPlans returns plan requests, optionally filtered by status.
func (g *Governance) ListPlans(status PlanStatus) ([]PlanRequest, error) {
	if err := g.ds.Acquire(); err != nil {
		return nil, err
	}
	defer g.ds.Release()

	all, err := dirstore.LoadJSONL[PlanRequest](g.ds, plansFile)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := all[:0:0]
	for _, r := range all {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

// RequestShutdown records a shutdown request against target.
func (g *Governance) RequestShutdown(requester, target, reason string) (*ShutdownRequest, error) {
	if target == "" {
		return nil, fmt.Errorf("request shutdown: empty target")
	}
	if err := g.ds.Acquire(); err != nil {
		return nil, err
	}
	defer g.ds.Release()

	all, err := dirstore.LoadJSONL[ShutdownRequest](g.ds, shutdownsFile)
	if err != nil {
		return nil, fmt.Errorf("request shutdown: %w", err)
	}
	for _, r := range all {
		if r.Target == target && r.Status == ShutdownRequested {
			return nil, fmt.Errorf("request shutdown: %q already has a pending request (%s)", target, r.ID)
		}
	}
	req := &ShutdownRequest{
		ID:        fmt.Sprintf("sr-%d", len(all)+1),
		Requester: requester,
		Target:    target,
		Reason:    reason,
		Status:    ShutdownRequested,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.ds.AppendJSONL(shutdownsFile, req); err != nil {
		return nil, fmt.Errorf("request shutdown: %w", err)
	}
	return req, nil
}

// DecideShutdown confirms or denies a pending shutdown request. Repeat
// decisions return ErrAlreadyDecided.
func (g *Governance) DecideShutdown(id string, confirm bool) (*ShutdownRequest, error) {
	if err := g.ds.Acquire(); err != nil {
		return nil, err
	}
	defer g.ds.Release()

	all, err := dirstore.LoadJSONL[ShutdownRequest](g.ds, shutdownsFile)
	if err != nil {
		return nil, fmt.Errorf("decide shutdown %q: %w", id, err)
	}
	idx := -1
	for i := range all {
		if all[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("decide shutdown %q: %w", id, dirstore.ErrNotFound)
	}
	if all[idx].Status != ShutdownRequested {
		return nil, fmt.Errorf("decide shutdown %q: %w", id, ErrAlreadyDecided)
	}
	now := time.Now().UTC()
	if confirm {
		all[idx].Status = ShutdownConfirmed
	} else {
		all[idx].Status = ShutdownDenied
	}
	all[idx].DecidedAt = &now
	if err := dirstore.WriteJSONL(g.ds, shutdownsFile, all); err != nil {
		return nil, fmt.Errorf("decide shutdown %q: %w", id, err)
	}
	out := all[idx]
	return &out, nil
}

// ListShutdowns returns shutdown requests, optionally filtered by status.
func (g *Governance) ListShutdowns(status ShutdownStatus) ([]ShutdownRequest, error) {
	if err := g.ds.Acquire(); err != nil {
		return nil, err
	}
	defer g.ds.Release()

	all, err := dirstore.LoadJSONL[ShutdownRequest](g.ds, shutdownsFile)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := all[:0:0]
	for _, r := range all {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}
