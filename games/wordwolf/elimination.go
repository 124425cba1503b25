/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordwolf

import (
	"fmt"
	"slices"
)

// Vote is the moderator-entered outcome of a voting round.
type Vote struct {
	Target string `json:"target,omitempty"`
	Tie    bool   `json:"tie,omitempty"`
}

// TieVote is the outcome where nobody is voted out.
func TieVote() Vote {
	return Vote{Tie: true}
}

// VoteFor is the outcome where name received the most votes.
func VoteFor(name string) Vote {
	return Vote{Target: name}
}

func (v Vote) selected() bool {
	return v.Tie || v.Target != ""
}

type ResultKind int

const (
	// ResultRetry means the vote was tied and nobody left the game.
	ResultRetry ResultKind = iota
	// ResultContinue means a player left but nobody has won yet.
	ResultContinue
	// ResultTerminal means the game is over.
	ResultTerminal
)

func (k ResultKind) String() string {
	switch k {
	case ResultRetry:
		return "retry"
	case ResultContinue:
		return "continue"
	case ResultTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// EliminationResult is the outcome of ProcessVote.
type EliminationResult struct {
	Kind       ResultKind
	Winner     Role
	Eliminated *AssignedPlayer
	Living     []AssignedPlayer
}

// ProcessVote applies a vote to the living roster. The input slice is never modified.
//
// Voting out the last minority player wins the game for the majority. Voting out
// a majority player wins it for the minority once the minority is at least as
// large as the remaining majority.
func ProcessVote(living []AssignedPlayer, vote Vote) (EliminationResult, error) {
	if vote.Tie {
		return EliminationResult{
			Kind:   ResultRetry,
			Living: slices.Clone(living),
		}, nil
	}

	if vote.Target == "" {
		return EliminationResult{}, invalid(ErrNoVoteSelected, "Select who was voted out, or a tie.")
	}

	i := indexOf(living, vote.Target)
	if i < 0 {
		return EliminationResult{}, invalid(ErrPlayerNotFound,
			fmt.Sprintf("%q is not a remaining player.", vote.Target))
	}

	eliminated := living[i]
	remaining := slices.Delete(slices.Clone(living), i, i+1)

	result := EliminationResult{
		Kind:       ResultContinue,
		Eliminated: &eliminated,
		Living:     remaining,
	}

	majority := countRole(remaining, RoleMajority)
	minority := countRole(remaining, RoleMinority)

	switch eliminated.Role {
	case RoleMinority:
		if minority == 0 {
			result.Kind = ResultTerminal
			result.Winner = RoleMajority
		}
	default:
		// An empty roster (0 >= 0) also lands here as a minority win.
		if minority >= majority {
			result.Kind = ResultTerminal
			result.Winner = RoleMinority
		}
	}

	return result, nil
}
