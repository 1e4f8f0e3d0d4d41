package browser

import (
	"strings"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPage creates a Rod browser and page for testing. The browser connects
// to a headless Chromium instance. The page is closed via t.Cleanup.
func setupPage(t *testing.T) *rod.Page {
	t.Helper()

	browser := rod.New().MustConnect()
	t.Cleanup(func() { browser.MustClose() })

	page := browser.MustPage()
	t.Cleanup(func() { page.MustClose() })

	return page
}

func TestInlineFrames_NoFrames(t *testing.T) {
	page := setupPage(t)
	page.MustNavigate("about:blank").MustWaitLoad()
	page.MustEval(`() => {
		document.body.innerHTML = '<div id="plain"><p>Hello World</p></div>';
	}`)

	html, frameCount, err := InlineFrames(page)

	require.NoError(t, err)
	assert.Equal(t, 0, frameCount)
	assert.Contains(t, html, "Hello World")
	assert.Contains(t, html, `id="plain"`)
}

func TestInlineFrames_SingleIframe(t *testing.T) {
	page := setupPage(t)
	page.MustNavigate("about:blank").MustWaitLoad()
	page.MustEval(`() => {
		const frame = document.createElement('iframe');
		frame.name = 'datamain';
		frame.srcdoc = '<table id=listing><tr><td>row-data</td></tr></table>';
		document.body.appendChild(frame);
	}`)
	page.MustWait(`() => {
		const f = document.querySelector('iframe');
		return f && f.contentDocument && f.contentDocument.body &&
			f.contentDocument.body.innerHTML.includes('row-data');
	}`)

	html, frameCount, err := InlineFrames(page)

	require.NoError(t, err)
	assert.Equal(t, 1, frameCount)
	assert.Contains(t, html, `data-captured-frame="true"`)
	assert.Contains(t, html, `data-frame-name="datamain"`)
	assert.Contains(t, html, "row-data")
	assert.Contains(t, html, "listing")
}

func TestInlineFrames_NestedIframes(t *testing.T) {
	page := setupPage(t)
	page.MustNavigate("about:blank").MustWaitLoad()
	page.MustEval(`() => {
		const outer = document.createElement('iframe');
		outer.name = 'outer';
		outer.srcdoc = '<iframe name="inner" srcdoc="<p id=deep>Deep Content</p>"></iframe>';
		document.body.appendChild(outer);
	}`)
	page.MustWait(`() => {
		const outer = document.querySelector('iframe');
		if (!outer || !outer.contentDocument) return false;
		const inner = outer.contentDocument.querySelector('iframe');
		return inner && inner.contentDocument && inner.contentDocument.body &&
			inner.contentDocument.body.innerHTML.includes('Deep Content');
	}`)

	html, frameCount, err := InlineFrames(page)

	require.NoError(t, err)
	assert.Equal(t, 2, frameCount)
	assert.Contains(t, html, `data-frame-name="outer"`)
	assert.Contains(t, html, `data-frame-name="inner"`)
	assert.Contains(t, html, "Deep Content")
}

func TestInlineFrames_FramesetDocument(t *testing.T) {
	page := setupPage(t)
	page.MustNavigate("about:blank").MustWaitLoad()
	page.MustEval(`() => {
		document.open();
		document.write('<frameset cols="200,*"><frame name="menu" src="about:blank"><frame name="datamain" src="about:blank"></frameset>');
		document.close();
	}`)
	page.MustWait(`() => {
		const frames = document.querySelectorAll('frame');
		if (frames.length !== 2) return false;
		for (const f of frames) {
			if (!f.contentDocument || f.contentDocument.readyState !== 'complete') return false;
		}
		return true;
	}`)

	html, frameCount, err := InlineFrames(page)

	require.NoError(t, err)
	assert.Equal(t, 2, frameCount)
	assert.Contains(t, html, `data-frame-tag="frame"`)
	assert.Contains(t, html, `data-frame-name="menu"`)
	assert.Contains(t, html, `data-frame-name="datamain"`)
}

func TestInlineFrames_FrameStyles(t *testing.T) {
	page := setupPage(t)
	page.MustNavigate("about:blank").MustWaitLoad()
	page.MustEval(`() => {
		const frame = document.createElement('iframe');
		frame.name = 'styled';
		frame.srcdoc = '<html><head><style>.cell { color: red; }</style></head><body><td class=cell>Styled</td></body></html>';
		document.body.appendChild(frame);
	}`)
	page.MustWait(`() => {
		const f = document.querySelector('iframe');
		return f && f.contentDocument && f.contentDocument.body &&
			f.contentDocument.body.innerHTML.includes('Styled');
	}`)

	html, frameCount, err := InlineFrames(page)

	require.NoError(t, err)
	assert.Equal(t, 1, frameCount)

	// Style should be copied with the data-from-frame marker
	assert.True(t, strings.Contains(html, `data-from-frame="true"`),
		"frame styles should have data-from-frame attribute")
	assert.Contains(t, html, "color: red")
	assert.Contains(t, html, "Styled")
}
