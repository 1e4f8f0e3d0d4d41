// Package browser provides utilities for browser automation with Rod.
package browser

import (
	"fmt"

	"github.com/go-rod/rod"
)

// frameSelector matches frameset frames as well as inline frames. The
// portal generation this targets mixes both: outer framesets from the
// original ASP layout and iframes bolted on in later revisions.
const frameSelector = "frame, iframe"

// WaitForFrames recursively waits for DOM stability on all visible frames.
// This ensures that frame content is fully loaded before interaction.
func WaitForFrames(page *rod.Page) {
	page.MustWaitDOMStable()

	frames, err := page.Elements(frameSelector)
	if err != nil {
		return
	}

	for _, frameEl := range frames {
		visible, _ := frameEl.Visible()
		if !visible {
			continue
		}

		frame, err := frameEl.Frame()
		if err != nil {
			continue
		}

		WaitForFrames(frame)
	}
}

// GetDeepestVisibleFrame recursively navigates into the deepest visible
// frame. Returns the innermost page/frame context for element interaction.
// If no visible frame is found, returns the original page.
func GetDeepestVisibleFrame(page *rod.Page) *rod.Page {
	page.MustWaitDOMStable()

	frames, err := page.Elements(frameSelector)
	if err != nil {
		return page
	}

	for _, frameEl := range frames {
		if visible, _ := frameEl.Visible(); visible {
			child := frameEl.MustFrame()
			return GetDeepestVisibleFrame(child)
		}
	}

	return page
}

// GetFrameBySelector returns the frame context for a specific frame selector.
// The returned *rod.Page can be used to interact with elements inside the
// frame.
func GetFrameBySelector(page *rod.Page, selector string) (*rod.Page, error) {
	frameEl, err := page.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("frame element not found: %w", err)
	}

	frame, err := frameEl.Frame()
	if err != nil {
		return nil, fmt.Errorf("failed to get frame context: %w", err)
	}

	return frame, nil
}

// GetFrameByName resolves a frame or iframe by its name attribute, searching
// nested frames one level deep. Frameset portals commonly nest the content
// frame inside a layout frame. Unlike GetFrameBySelector this does not wait
// for the element to appear; callers poll if they need a readiness wait.
func GetFrameByName(page *rod.Page, name string) (*rod.Page, error) {
	selector := fmt.Sprintf("frame[name='%s'], iframe[name='%s']", name, name)

	if frame, ok := frameFromFirstMatch(page, selector); ok {
		return frame, nil
	}

	outer, err := page.Elements(frameSelector)
	if err != nil {
		return nil, fmt.Errorf("frame %q not found: %w", name, err)
	}

	for _, frameEl := range outer {
		parent, err := frameEl.Frame()
		if err != nil {
			continue
		}
		if frame, ok := frameFromFirstMatch(parent, selector); ok {
			return frame, nil
		}
	}

	return nil, fmt.Errorf("frame %q not found in page or nested frames", name)
}

func frameFromFirstMatch(page *rod.Page, selector string) (*rod.Page, bool) {
	els, err := page.Elements(selector)
	if err != nil || len(els) == 0 {
		return nil, false
	}

	frame, err := els[0].Frame()
	if err != nil {
		return nil, false
	}

	return frame, true
}
