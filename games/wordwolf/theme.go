/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordwolf

import "math/rand/v2"

// ResolveTheme picks one entry at random and resolves it to a concrete pair.
//
// With no entries it returns ErrNotAvailable and an empty pair. An entry with
// neither form filled in resolves to an empty pair and a nil error, which callers
// must treat as "no theme selected".
func ResolveTheme(rng *rand.Rand, entries []ThemeEntry) (WordPair, error) {
	if len(entries) == 0 {
		return WordPair{}, ErrNotAvailable
	}

	entry := entries[rng.IntN(len(entries))]

	switch {
	case entry.hasLists():
		// The two picks are independent; index i of one list has no relation to index i of the other.
		return WordPair{
			Majority: entry.MajorityWords[rng.IntN(len(entry.MajorityWords))],
			Minority: entry.MinorityWords[rng.IntN(len(entry.MinorityWords))],
		}, nil
	case entry.hasScalars():
		return WordPair{
			Majority: entry.MajorityWord,
			Minority: entry.MinorityWord,
		}, nil
	default:
		return WordPair{}, nil
	}
}
