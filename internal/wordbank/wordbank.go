/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package wordbank provides the theme catalogs: a built-in list, an optional
// catalog file, and the cards the moderator creates during a session.
package wordbank

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/Seednode/wordwolf/games/wordwolf"
	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"
)

// CardsKey is where the custom catalog is persisted. It lives under the
// reserved prefix so a purge removes it.
const CardsKey = wordwolf.KeyPrefix + "cards"

//go:embed themes.yaml
var builtin []byte

type catalog struct {
	Themes []wordwolf.ThemeEntry `yaml:"themes"`
}

// Parse reads a YAML catalog. Entries without an id are numbered.
func Parse(r io.Reader) ([]wordwolf.ThemeEntry, error) {
	var c catalog

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for i := range c.Themes {
		if strings.TrimSpace(c.Themes[i].ID) == "" {
			c.Themes[i].ID = fmt.Sprintf("theme-%d", i+1)
		}
	}

	return c.Themes, nil
}

// Builtin returns the catalog compiled into the binary.
func Builtin() []wordwolf.ThemeEntry {
	entries, err := Parse(bytes.NewReader(builtin))
	if err != nil {
		panic("wordbank: built-in catalog is invalid: " + err.Error())
	}
	return entries
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) ([]wordwolf.ThemeEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Unusable counts entries that resolve to no words.
func Unusable(entries []wordwolf.ThemeEntry) int {
	n := 0
	for _, e := range entries {
		if !e.Usable() {
			n++
		}
	}
	return n
}

type Store interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context, key string, value any) (bool, error)
}

// Bank serves themes to the game controller. It is not safe for concurrent use.
type Bank struct {
	preset []wordwolf.ThemeEntry
	custom []wordwolf.ThemeEntry

	store Store
	logf  func(format string, args ...any)
	newID func() string
}

// New returns a bank over preset, restoring any custom cards saved in store.
func New(ctx context.Context, preset []wordwolf.ThemeEntry, store Store, logf func(format string, args ...any)) *Bank {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	b := &Bank{
		preset: slices.Clone(preset),
		store:  store,
		logf:   logf,
		newID:  uuid.NewString,
	}

	if store != nil {
		var saved []wordwolf.ThemeEntry
		found, err := store.Load(ctx, CardsKey, &saved)
		if err != nil {
			logf("STORE: Failed to load %s: %v", CardsKey, err)
		}
		if found {
			b.custom = saved
		}
	}

	return b
}

func (b *Bank) Themes(source wordwolf.ThemeSource) []wordwolf.ThemeEntry {
	if source == wordwolf.SourceCustom {
		return b.custom
	}
	return b.preset
}

func (b *Bank) Cards() []wordwolf.ThemeEntry {
	return slices.Clone(b.custom)
}

func (b *Bank) AddCard(ctx context.Context, pair wordwolf.WordPair) (wordwolf.ThemeEntry, error) {
	if pair.Empty() {
		return wordwolf.ThemeEntry{}, wordwolf.ErrMissingWords
	}

	entry := wordwolf.ThemeEntry{
		ID:           b.newID(),
		MajorityWord: strings.TrimSpace(pair.Majority),
		MinorityWord: strings.TrimSpace(pair.Minority),
	}
	b.custom = append(b.custom, entry)
	b.persist(ctx)

	return entry, nil
}

func (b *Bank) UpdateCard(ctx context.Context, id string, pair wordwolf.WordPair) error {
	if pair.Empty() {
		return wordwolf.ErrMissingWords
	}

	i := b.find(id)
	if i < 0 {
		return wordwolf.ErrCardNotFound
	}

	b.custom[i] = wordwolf.ThemeEntry{
		ID:           id,
		MajorityWord: strings.TrimSpace(pair.Majority),
		MinorityWord: strings.TrimSpace(pair.Minority),
	}
	b.persist(ctx)

	return nil
}

func (b *Bank) DeleteCard(ctx context.Context, id string) error {
	i := b.find(id)
	if i < 0 {
		return wordwolf.ErrCardNotFound
	}

	b.custom = slices.Delete(b.custom, i, i+1)
	b.persist(ctx)

	return nil
}

// ClearCards forgets the custom catalog in memory. The persisted copy is
// removed by the caller's purge.
func (b *Bank) ClearCards() {
	b.custom = nil
}

func (b *Bank) find(id string) int {
	return slices.IndexFunc(b.custom, func(e wordwolf.ThemeEntry) bool {
		return e.ID == id
	})
}

func (b *Bank) persist(ctx context.Context) {
	if b.store == nil {
		return
	}
	if err := b.store.Save(ctx, CardsKey, b.custom); err != nil {
		b.logf("STORE: Failed to save %s: %v", CardsKey, err)
	}
}
