/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package clipboard copies hand-out text on the machine running the console.
package clipboard

import (
	"github.com/atotto/clipboard"
)

// Copier writes text to the system clipboard. Failures are logged and reported
// as false; they never interrupt the game.
type Copier struct {
	write func(string) error
	logf  func(format string, args ...any)
}

func New(logf func(format string, args ...any)) *Copier {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Copier{
		write: clipboard.WriteAll,
		logf:  logf,
	}
}

// Available reports whether a clipboard utility was found on this system.
func Available() bool {
	return !clipboard.Unsupported
}

func (c *Copier) Copy(text string) bool {
	if c == nil || c.write == nil {
		return false
	}

	if err := c.write(text); err != nil {
		c.logf("CLIPBOARD: Failed to copy %d bytes: %v", len(text), err)
		return false
	}

	return true
}
