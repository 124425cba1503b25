/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordwolf

import (
	"fmt"
	"strings"
)

const explanation = `[Word Wolf]

Everyone talks about their secret word and tries to find the "wolf":
the player (or players) who were handed a slightly different word.

How to play
1. Each player privately receives one of two similar words.
2. Nobody knows whether their word is the majority word or the wolf word.
3. Talk freely about your word and look for whoever seems off.
4. When the discussion ends, vote for the player you think is a wolf.
5. The player with the most votes is out. On a tie, discuss again and revote.

Winning
- Majority: vote out every wolf.
- Wolves: reach at least as many players as the majority.

With several wolves, the majority only wins once all of them are out.
Voting out a majority player does not end the game unless the wolves catch up.`

// Explanation is the rules text the moderator can hand to the group.
func Explanation() string {
	return explanation
}

// RoleText is the private message for one player.
func RoleText(p AssignedPlayer) string {
	return fmt.Sprintf("%s, your word is: %s", p.Name, p.Word)
}

// VotingText lists the remaining players so everyone can vote by number.
func VotingText(living []AssignedPlayer) string {
	if len(living) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString("[Voting time]\n\nSend the number of the player you think is a wolf.\n\n")
	for i, p := range living {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
	}
	b.WriteString("\nOn a tie, we discuss again and revote.")

	return b.String()
}

// RoleText returns the hand-out for the i-th dealt player.
func (c *Controller) RoleText(i int) (string, error) {
	if i < 0 || i >= len(c.session.All) {
		return "", invalid(ErrPlayerNotFound, "No such player.")
	}
	return RoleText(c.session.All[i]), nil
}

func (c *Controller) VotingText() string {
	return VotingText(c.session.Living)
}
