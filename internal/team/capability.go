// Package team coordinates a lead agent and its teammates: a persistent
// roster, per-recipient inboxes, and the governance protocols (plan
// approval, shutdown) that gate teammate lifecycle changes.
package team

import "errors"

// ErrCapabilityDenied is returned when an agent attempts an operation its
// capability class does not permit. Fatal to the attempted operation.
var ErrCapabilityDenied = errors.New("capability denied")

// AgentType is the capability class of an agent process.
type AgentType string

const (
	// AgentLead drives the session, owns team operations, and decides
	// governance requests.
	AgentLead AgentType = "lead"
	// AgentBuilder executes work: files, shell, tasks, skills, background.
	AgentBuilder AgentType = "builder"
	// AgentExplorer is read-only: it may inspect but not mutate the
	// workspace.
	AgentExplorer AgentType = "explorer"
)

// ValidAgentType reports whether t names a known capability class.
func ValidAgentType(t AgentType) bool {
	switch t {
	case AgentLead, AgentBuilder, AgentExplorer:
		return true
	}
	return false
}

// CanSpawn reports whether an agent of type spawner may create an agent of
// type child. Only the lead creates teammates, and never another lead.
func CanSpawn(spawner, child AgentType) bool {
	if spawner != AgentLead {
		return false
	}
	return child == AgentBuilder || child == AgentExplorer
}

// CanWrite reports whether the class may mutate workspace files.
func CanWrite(t AgentType) bool {
	return t == AgentLead || t == AgentBuilder
}
