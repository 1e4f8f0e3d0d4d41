// Package browser provides utilities for browser automation with Rod.
package browser

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
)

// inlineFramesJS is a JavaScript function that recursively walks the DOM,
// inlining frame and iframe documents into a single parseable HTML document.
//
// The portal is a classic ASP frameset application: the top-level document is
// only a <frameset> shell, and the actual content (menus, listings, detail
// tables) lives in named child frames. A plain page.HTML() on the top-level
// page returns the shell with empty <frame> tags and none of the data.
//
// This script walks every element depth-first. For frame and iframe elements,
// it accesses contentDocument and inlines the content in a
// <div data-captured-frame="true">, preserving the frame's name so captured
// fixtures keep the structure selectors rely on.
//
// Critical ordering: frames nested inside other frames must be inlined
// BEFORE the parent frame is serialized. Once frame content is read as
// innerHTML, live contentDocument references of its children become dead.
// The depth-first, bottom-up approach ensures this.
const inlineFramesJS = `() => {
	const MAX_DEPTH = 100;
	let frameCount = 0;

	function isFrameElement(el) {
		return el.tagName === 'FRAME' || el.tagName === 'IFRAME';
	}

	function flattenNode(node, depth) {
		if (depth > MAX_DEPTH) return;

		// Process child nodes first (depth-first)
		const children = Array.from(node.childNodes);
		for (const child of children) {
			if (child.nodeType === Node.ELEMENT_NODE) {
				flattenElement(child, depth);
			}
		}
	}

	function flattenElement(el, depth) {
		if (depth > MAX_DEPTH) return;

		if (isFrameElement(el)) {
			inlineFrame(el, depth);
			return;
		}

		// Regular element — recurse into children
		flattenNode(el, depth + 1);
	}

	function inlineFrame(frame, depth) {
		try {
			const frameDoc = frame.contentDocument || (frame.contentWindow && frame.contentWindow.document);
			if (!frameDoc || !frameDoc.documentElement) {
				markFrameError(frame, 'no contentDocument available');
				return;
			}

			// Recurse into the frame document first (depth-first)
			flattenNode(frameDoc.documentElement, depth + 1);

			// Now serialize the (already-flattened) frame content
			const container = frame.ownerDocument.createElement('div');
			container.setAttribute('data-captured-frame', 'true');
			container.setAttribute('data-frame-tag', frame.tagName.toLowerCase());
			container.setAttribute('data-frame-src', frame.src || '');
			container.setAttribute('data-frame-id', frame.id || '');
			container.setAttribute('data-frame-name', frame.name || '');

			// Copy styles from the frame head
			if (frameDoc.head) {
				frameDoc.head.querySelectorAll('style').forEach(function(style) {
					const s = frame.ownerDocument.createElement('style');
					s.setAttribute('data-from-frame', 'true');
					s.textContent = style.textContent;
					container.appendChild(s);
				});
			}

			// Copy frame body content. Frameset documents have no <body>;
			// their children were already inlined by the recursion above,
			// so serialize the documentElement instead.
			if (frameDoc.body) {
				container.innerHTML += frameDoc.body.innerHTML;
			} else {
				container.innerHTML += frameDoc.documentElement.innerHTML;
			}

			frameCount++;
			frame.parentNode.replaceChild(container, frame);
		} catch(e) {
			markFrameError(frame, e.message);
		}
	}

	function markFrameError(frame, message) {
		try {
			const errDiv = frame.ownerDocument.createElement('div');
			errDiv.setAttribute('data-captured-frame', 'true');
			errDiv.setAttribute('data-frame-error', message);
			errDiv.setAttribute('data-frame-src', frame.src || '');
			errDiv.textContent = '[frame not accessible: ' + message + ']';
			frame.parentNode.replaceChild(errDiv, frame);
		} catch(e) {
			// Can't even create error marker — skip silently
		}
	}

	// Start flattening from the document root
	flattenNode(document.documentElement, 0);

	return JSON.stringify({
		html: document.documentElement.outerHTML,
		frameCount: frameCount
	});
}`

// inlineResult holds the parsed JSON response from the JS flattener.
type inlineResult struct {
	HTML       string `json:"html"`
	FrameCount int    `json:"frameCount"`
}

// InlineFrames executes JavaScript on the page to recursively inline all
// frame and iframe documents into a single HTML string.
//
// This is necessary for the portal's frameset pages, where a plain
// page.HTML() on the top-level document returns only the <frameset> shell.
//
// The function modifies the live DOM by replacing frame elements with div
// containers. This is acceptable for fixture capture since the user
// navigates to a new page between each capture step.
//
// Returns the merged HTML string, the count of frames inlined, and any
// error. On JS eval failure, falls back to plain page.HTML().
func InlineFrames(page *rod.Page) (html string, frameCount int, err error) {
	res, evalErr := page.Eval(inlineFramesJS)
	if evalErr != nil {
		// Fallback: return plain HTML if JS eval fails
		html, err = page.HTML()
		if err != nil {
			return "", 0, fmt.Errorf("inline frames eval failed and fallback HTML failed: %w", err)
		}
		return html, 0, nil
	}

	var result inlineResult
	if err := json.Unmarshal([]byte(res.Value.Str()), &result); err != nil {
		// Fallback: return plain HTML if JSON parse fails
		html, htmlErr := page.HTML()
		if htmlErr != nil {
			return "", 0, fmt.Errorf("inline frames JSON parse failed and fallback HTML failed: %w", htmlErr)
		}
		return html, 0, nil
	}

	return result.HTML, result.FrameCount, nil
}
