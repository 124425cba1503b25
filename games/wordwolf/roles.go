/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordwolf

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// MinPlayers is the smallest roster a game can be dealt to.
const MinPlayers = 3

// NormalizeRoster trims names, drops blank entries and rejects duplicates.
func NormalizeRoster(names []string) ([]string, error) {
	roster := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, invalid(ErrDuplicatePlayer,
				fmt.Sprintf("The name %q is used more than once. Each player needs a unique name.", name))
		}
		seen[name] = true
		roster = append(roster, name)
	}

	if len(roster) < MinPlayers {
		return nil, invalid(ErrTooFewPlayers,
			fmt.Sprintf("At least %d players are required.", MinPlayers))
	}

	return roster, nil
}

func validateMinorityCount(minorityCount, playerCount int) error {
	if minorityCount < 1 || minorityCount >= playerCount {
		return invalid(ErrMinorityCount,
			fmt.Sprintf("The number of wolves must be between 1 and %d.", playerCount-1))
	}
	return nil
}

// AssignRoles deals roles to players. Exactly minorityCount players receive the
// minority word; everyone else receives the majority word. The output keeps the
// order of the input roster.
func AssignRoles(rng *rand.Rand, players []string, pair WordPair, minorityCount int) ([]AssignedPlayer, error) {
	roster, err := NormalizeRoster(players)
	if err != nil {
		return nil, err
	}

	if pair.Empty() {
		return nil, invalid(ErrMissingWords, "No theme has been selected.")
	}

	if err := validateMinorityCount(minorityCount, len(roster)); err != nil {
		return nil, err
	}

	// Already guaranteed by the check above, but the count may come from a stale draft.
	minorityCount = min(minorityCount, len(roster)-1)

	wolves := make(map[int]struct{}, minorityCount)
	for len(wolves) < minorityCount {
		wolves[rng.IntN(len(roster))] = struct{}{}
	}

	assigned := make([]AssignedPlayer, len(roster))
	for i, name := range roster {
		role := RoleMajority
		if _, ok := wolves[i]; ok {
			role = RoleMinority
		}
		assigned[i] = AssignedPlayer{
			Name: name,
			Role: role,
			Word: pair.WordFor(role),
		}
	}

	return assigned, nil
}
