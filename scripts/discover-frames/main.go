// discover-frames navigates to a portal page and prints the frame tree,
// probing each frame for known CSS selectors. The output serves as a
// reference for which frame contains which parseable content.
//
// Usage:
//
//	go run ./scripts/discover-frames -portal=wedi
//
// The script opens a visible browser and prompts you to navigate to each
// page manually. After you press ENTER, it inspects the frame tree and
// prints a report.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	browserutil "github.com/chiehwen/wedi-export/internal/scraper/browser"
)

// selectorProbe is a known CSS selector to search for in each frame.
type selectorProbe struct {
	Name     string // Human label (e.g., "Login button")
	Selector string // CSS selector
}

// wediProbes are the known selectors from selectors.go to probe for.
// Add new selectors here as you discover them.
var wediProbes = []selectorProbe{
	// Login
	{"Account input", "input[name='CUST_ID']"},
	{"Password input", "input[name='CUST_PASSWORD']"},
	{"Captcha input", "input[name='KEY_RND']"},
	{"Login submit", "input[type='submit']"},
	{"Captcha red font", `font[color="red"], font[color="#ff0000"]`},

	// Main menu frameset
	{"Query frame", "frame[name='datamain'], iframe[name='datamain']"},
	{"Menu links", "a[href*='.asp']"},

	// Query page
	{"Date inputs", "input[type='text'], input:not([type])"},
	{"Query submit", "input[value*='查詢']"},
	{"Listing table links", "table a"},

	// Detail page
	{"Download blob", "[data-fileblob]"},
	{"Detail table", "table"},
}

// pageToInspect defines a page the user should navigate to.
type pageToInspect struct {
	Name         string
	Instructions string
}

var wediPages = []pageToInspect{
	{"Login page", "Navigate to the WEDI login page (don't log in yet)"},
	{"Main menu", "Log in with valid credentials and the captcha, wait for the frameset"},
	{"Query page", "Click 查詢作業 in the menu, then 查件頁面"},
	{"Payment listing", "Open 代收貨款匯款明細 and submit a date range with results"},
	{"Detail page", "Click a remittance number in the listing"},
}

func main() {
	portalCode := flag.String("portal", "", "Portal code: wedi")
	flag.Parse()

	if *portalCode == "" {
		fmt.Println("Usage: go run ./scripts/discover-frames -portal=wedi")
		os.Exit(1)
	}

	probes := getProbes(*portalCode)
	pages := getPages(*portalCode)

	fmt.Println("================================================================")
	fmt.Printf("  FRAME DISCOVERY: %s\n", strings.ToUpper(*portalCode))
	fmt.Println("================================================================")
	fmt.Println()
	fmt.Println("This tool inspects the frame tree on each page and reports")
	fmt.Println("which frame contains which selectors.")
	fmt.Println()

	binPath := os.Getenv("WEDI_BROWSER_BIN")
	if binPath == "" {
		binPath = "/usr/bin/google-chrome"
	}

	// Launch visible browser
	url := launcher.New().
		Bin(binPath).
		Headless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("exclude-switches", "enable-automation").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", "1920,1080").
		Devtools(false).
		MustLaunch()

	browser := rod.New().ControlURL(url).MustConnect()
	defer browser.MustClose()

	page := stealth.MustPage(browser)

	reader := bufio.NewReader(os.Stdin)

	for _, pg := range pages {
		fmt.Println("----------------------------------------------------------------")
		fmt.Printf("PAGE: %s\n", pg.Name)
		fmt.Printf("  -> %s\n", pg.Instructions)
		fmt.Print("  Press ENTER when ready (or 'skip'/'quit'): ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input == "quit" {
			break
		}
		if input == "skip" {
			fmt.Printf("  Skipped.\n\n")
			continue
		}

		// Wait for DOM stability across all frames
		browserutil.WaitForFrames(page)
		time.Sleep(500 * time.Millisecond)

		pageURL := page.MustInfo().URL
		fmt.Printf("\n  URL: %s\n\n", pageURL)

		inspectFrame(page, "main", 1, probes)
		fmt.Println()
	}

	fmt.Println("================================================================")
	fmt.Println("  Discovery complete.")
	fmt.Println("  Copy the output above into docs/wedi-portal-behavior.md")
	fmt.Println("  under the '## Frame Map' section.")
	fmt.Println("================================================================")
}

// inspectFrame recursively inspects a frame for known selectors and child frames.
func inspectFrame(page *rod.Page, path string, depth int, probes []selectorProbe) {
	indent := strings.Repeat("  ", depth)

	// Probe for known selectors in this frame
	found := 0
	for _, probe := range probes {
		el, err := page.Timeout(500 * time.Millisecond).Element(probe.Selector)
		if err != nil {
			continue
		}
		visible, _ := el.Visible()
		tag, _ := el.Eval(`() => this.tagName.toLowerCase()`)
		tagName := ""
		if tag != nil {
			tagName = tag.Value.Str()
		}
		fmt.Printf("%sFOUND  %-30s  %s  (visible=%v, tag=%s)\n",
			indent, probe.Name, probe.Selector, visible, tagName)
		found++
	}
	if found == 0 {
		fmt.Printf("%s(no known selectors found)\n", indent)
	}

	// Find child frames. The portal uses <frame> inside framesets on the
	// menu pages and the occasional <iframe> on detail pages.
	frames, err := page.Elements("frame, iframe")
	if err != nil {
		return
	}

	for i, frameEl := range frames {
		src, _ := frameEl.Attribute("src")
		id, _ := frameEl.Attribute("id")
		name, _ := frameEl.Attribute("name")
		visible, _ := frameEl.Visible()

		srcStr := deref(src)
		idStr := deref(id)
		nameStr := deref(name)

		// Build a readable identifier for this frame
		label := fmt.Sprintf("frame[%d]", i)
		if idStr != "" {
			label = fmt.Sprintf("frame#%s", idStr)
		} else if nameStr != "" {
			label = fmt.Sprintf("frame[name=%s]", nameStr)
		}

		childPath := fmt.Sprintf("%s > %s", path, label)

		fmt.Printf("\n%sFRAME %s  visible=%v  src=%s\n", indent, childPath, visible, truncate(srcStr, 80))

		frame, err := frameEl.Frame()
		if err != nil {
			fmt.Printf("%s  (cannot access frame: %v)\n", indent, err)
			continue
		}

		inspectFrame(frame, childPath, depth+1, probes)
	}
}

func getProbes(portalCode string) []selectorProbe {
	switch portalCode {
	case "wedi":
		return wediProbes
	default:
		fmt.Printf("No probes defined for portal %q, using WEDI defaults\n", portalCode)
		return wediProbes
	}
}

func getPages(portalCode string) []pageToInspect {
	switch portalCode {
	case "wedi":
		return wediPages
	default:
		return wediPages
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
