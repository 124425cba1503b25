/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package wordwolf implements the rules of Word Wolf: every player gets one of two
// similar words, the group discusses and votes, and the minority ("wolves") win once
// they are at least as many as the majority.
package wordwolf

import (
	"slices"
	"strings"
)

type Role string

const (
	RoleNone     Role = ""
	RoleMajority Role = "majority"
	RoleMinority Role = "minority"
)

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Phase is a state of the moderator's game flow.
type Phase string

const (
	PhaseWelcome          Phase = "welcome"
	PhasePlayerSetup      Phase = "player_setup"
	PhaseThemeSetup       Phase = "theme_setup"
	PhaseRoleDistribution Phase = "role_distribution"
	PhaseDiscussion       Phase = "discussion"
	PhaseVoting           Phase = "voting"
	PhaseResult           Phase = "result"
)

func (p Phase) String() string {
	return string(p)
}

// ThemeEntry is one card of the word bank. Either the scalar (legacy) or the
// list form must be filled in for the entry to be usable.
type ThemeEntry struct {
	ID            string   `json:"id" yaml:"id"`
	MajorityWord  string   `json:"majority_word,omitempty" yaml:"majority_word,omitempty"`
	MinorityWord  string   `json:"minority_word,omitempty" yaml:"minority_word,omitempty"`
	MajorityWords []string `json:"majority_words,omitempty" yaml:"majority_words,omitempty"`
	MinorityWords []string `json:"minority_words,omitempty" yaml:"minority_words,omitempty"`
}

func (t ThemeEntry) hasLists() bool {
	return len(t.MajorityWords) > 0 && len(t.MinorityWords) > 0
}

func (t ThemeEntry) hasScalars() bool {
	return t.MajorityWord != "" && t.MinorityWord != ""
}

// Usable reports whether the entry can be resolved to a word pair.
func (t ThemeEntry) Usable() bool {
	return t.hasLists() || t.hasScalars()
}

// WordPair is a resolved theme: the word for the majority and the word for the minority.
type WordPair struct {
	Majority string `json:"majority"`
	Minority string `json:"minority"`
}

// Empty reports whether either word is missing.
func (p WordPair) Empty() bool {
	return strings.TrimSpace(p.Majority) == "" || strings.TrimSpace(p.Minority) == ""
}

// WordFor returns the word bound to role.
func (p WordPair) WordFor(role Role) string {
	if role == RoleMinority {
		return p.Minority
	}
	return p.Majority
}

// AssignedPlayer is a player after roles are dealt. It is never modified afterwards.
type AssignedPlayer struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	Word string `json:"word"`
}

// Session is the state of one dealt game.
type Session struct {
	// Living shrinks as players are voted out.
	Living []AssignedPlayer `json:"living"`
	// All is fixed at deal time and kept for the final reveal.
	All        []AssignedPlayer `json:"all"`
	Eliminated *AssignedPlayer  `json:"eliminated,omitempty"`
	Exiled     []AssignedPlayer `json:"exiled,omitempty"`
	Winner     Role             `json:"winner,omitempty"`
}

// NewSession starts a session from a fresh deal. Living and All do not share storage.
func NewSession(assigned []AssignedPlayer) Session {
	return Session{
		Living: slices.Clone(assigned),
		All:    slices.Clone(assigned),
	}
}

func (s Session) clone() Session {
	out := s
	out.Living = slices.Clone(s.Living)
	out.All = slices.Clone(s.All)
	out.Exiled = slices.Clone(s.Exiled)
	if s.Eliminated != nil {
		e := *s.Eliminated
		out.Eliminated = &e
	}
	return out
}

// Alive reports whether name is still in the living roster.
func (s Session) Alive(name string) bool {
	return indexOf(s.Living, name) >= 0
}

// Finished reports whether a winner has been decided.
func (s Session) Finished() bool {
	return s.Winner != RoleNone
}

func indexOf(players []AssignedPlayer, name string) int {
	for i, p := range players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func countRole(players []AssignedPlayer, role Role) int {
	n := 0
	for _, p := range players {
		if p.Role == role {
			n++
		}
	}
	return n
}
