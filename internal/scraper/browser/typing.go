// Package browser provides utilities for browser automation with Rod.
package browser

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
)

// TypeHuman types text into an element with human-like timing.
// It uses Element.Type() which properly triggers keyboard events (keydown/keyup).
// Small random delays (50-150ms) between keystrokes simulate human typing.
func TypeHuman(el *rod.Element, text string) error {
	for _, char := range text {
		if err := el.Type(input.Key(char)); err != nil {
			return err
		}
		// Small random delay to simulate human typing
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
	return nil
}

// TypeFast types text quickly without delays.
// Useful for replay mode and batch runs where speed matters more than human
// simulation. Still triggers proper keyboard events (keydown/keyup) for each
// character.
func TypeFast(el *rod.Element, text string) error {
	keys := make([]input.Key, 0, len(text))
	for _, char := range text {
		keys = append(keys, input.Key(char))
	}
	return el.Type(keys...)
}

// ClearAndType replaces an input's current value with text. The portal
// pre-fills its date fields server-side, so typing without clearing first
// would append to the stale value.
func ClearAndType(el *rod.Element, text string) error {
	if err := el.SelectAllText(); err != nil {
		return err
	}
	if err := el.Input(""); err != nil {
		return err
	}
	return TypeFast(el, text)
}
