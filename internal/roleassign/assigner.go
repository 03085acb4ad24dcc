// Package roleassign maps a raw log event, viewed from a particular agent's
// perspective, into a prompt message with a role drawn from {assistant,
// user, system}, grounded on nexus's internal/multiagent/context.go role
// bucketing idiom (there used to filter/relabel messages.Role during
// handoff context sharing; here used to assign roles from scratch).
package roleassign

import (
	"fmt"
	"strings"

	"github.com/signalmesh/swarmcore/pkg/event"
)

// Role is one of the three prompt-message roles a RoleAssigner can emit.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
)

// Message is the output of role assignment: a role paired with rendered
// content ready to append to a prompt message stream.
type Message struct {
	Role    Role
	Content string
}

// NameResolver resolves a pubkey to a display name, satisfied by
// *identity.Resolver.
type NameResolver interface {
	Name(pubkey string) string
}

// DelegationLookup reports whether a pending delegation exists from
// delegatingAgent to respondent within conversation convID, per spec.md
// §4.3 rule 2.
type DelegationLookup interface {
	HasPending(convID, delegatingAgent, respondent string) bool
}

// ProjectAgents reports whether a pubkey belongs to a registered project
// agent, used to separate "addressing other agents" from "addressing
// outside parties" in the human-user branch.
type ProjectAgents interface {
	IsProjectAgent(pubkey string) bool
}

// Assigner implements spec.md §4.3's five-branch role decision tree.
type Assigner struct {
	Names       NameResolver
	Delegations DelegationLookup
	Agents      ProjectAgents
}

// New constructs an Assigner from its three collaborators.
func New(names NameResolver, delegations DelegationLookup, agents ProjectAgents) *Assigner {
	return &Assigner{Names: names, Delegations: delegations, Agents: agents}
}

// isHumanUser reports whether e was authored by a human user rather than a
// registered project agent.
func (a *Assigner) isHumanUser(e event.Event) bool {
	return !a.Agents.IsProjectAgent(e.Author)
}

// Assign implements spec.md §4.3: given event e, the viewing agent's pubkey
// viewer, an optional conversation id convID (empty string means absent),
// and the already-processed content string content, returns the role and
// final rendered content.
func (a *Assigner) Assign(e event.Event, viewer, convID, content string) Message {
	// 1. Self.
	if e.Author == viewer {
		return Message{Role: RoleAssistant, Content: content}
	}

	// 2. Pending delegation response.
	if convID != "" && !a.isHumanUser(e) && a.Delegations != nil &&
		a.Delegations.HasPending(convID, viewer, e.Author) {
		name := a.Names.Name(e.Author)
		return Message{
			Role: RoleUser,
			Content: fmt.Sprintf("[DELEGATION RESPONSE from %s]:\n%s\n[END DELEGATION RESPONSE]",
				name, content),
		}
	}

	// 3. Human user.
	if a.isHumanUser(e) {
		projectTargets := a.projectAgentTargets(e)
		if len(projectTargets) > 0 && !contains(projectTargets, viewer) {
			names := a.names(projectTargets)
			userName := a.Names.Name(e.Author)
			return Message{
				Role: RoleSystem,
				Content: fmt.Sprintf("[User (%s) → %s]: %s",
					userName, strings.Join(names, ", "), content),
			}
		}
		return Message{Role: RoleUser, Content: content}
	}

	// 4. Another agent.
	targets := e.Addressees()
	senderName := a.Names.Name(e.Author)
	switch {
	case len(targets) > 0 && contains(targets, viewer):
		viewerName := a.Names.Name(viewer)
		return Message{
			Role:    RoleUser,
			Content: fmt.Sprintf("[%s → @%s]: %s", senderName, viewerName, content),
		}
	case len(targets) > 0:
		names := a.names(targets)
		return Message{
			Role:    RoleSystem,
			Content: fmt.Sprintf("[%s → %s]: %s", senderName, strings.Join(names, ", "), content),
		}
	default:
		return Message{Role: RoleSystem, Content: fmt.Sprintf("[%s]: %s", senderName, content)}
	}
}

// projectAgentTargets returns e's p-tag addressees that are registered
// project agents, preserving order.
func (a *Assigner) projectAgentTargets(e event.Event) []string {
	var out []string
	for _, pk := range e.Addressees() {
		if a.Agents.IsProjectAgent(pk) {
			out = append(out, pk)
		}
	}
	return out
}

func (a *Assigner) names(pubkeys []string) []string {
	out := make([]string, len(pubkeys))
	for i, pk := range pubkeys {
		out[i] = a.Names.Name(pk)
	}
	return out
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
