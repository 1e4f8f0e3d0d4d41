package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	browserutil "github.com/chiehwen/wedi-export/internal/scraper/browser"
)

// Pages to capture for each portal
var capturePages = []PageCapture{
	{Name: "login_page", Instructions: "Navigate to the login page (don't log in yet)"},
	{Name: "main_menu", Instructions: "Log in with VALID credentials and the red captcha code, wait for the frameset menu"},
	{Name: "query_menu", Instructions: "Click 查詢作業 in the menu, then 查件頁面"},
	{Name: "payment_listing", Instructions: "Open (2-1) 代收貨款匯款明細, fill a date range with results, submit"},
	{Name: "detail_table", Instructions: "Click a remittance number whose detail renders as a plain table"},
	{Name: "detail_blob", Instructions: "Find a detail page with a download button (data-fileblob) and open it"},
	{Name: "freight_listing", Instructions: "Back at the query menu, open 運費月結 and submit a month range"},
	{Name: "unpaid_listing", Instructions: "Open 運費未請款明細 (the table is on the query page itself)"},
	{Name: "logout", Instructions: "Log out of the portal before quitting (or skip)"},
}

type PageCapture struct {
	Name         string
	Instructions string
}

func main() {
	portalCode := flag.String("portal", "", "Portal code: wedi")
	outputDir := flag.String("output", "", "Output directory (default: internal/scraper/portal/{portal}/testdata/fixtures)")
	flag.Parse()

	if *portalCode == "" {
		fmt.Println("Usage: go run main.go -portal=wedi")
		os.Exit(1)
	}

	// Set output directory
	outDir := *outputDir
	if outDir == "" {
		outDir = filepath.Join("internal", "scraper", "portal", *portalCode, "testdata", "fixtures")
	}

	// Create output directory
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║           PORTAL FIXTURE CAPTURE TOOL                          ║")
	fmt.Println("╠════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Portal: %-52s  ║\n", strings.ToUpper(*portalCode))
	fmt.Printf("║  Output: %-52s  ║\n", outDir)
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	binPath := os.Getenv("WEDI_BROWSER_BIN")
	if binPath == "" {
		binPath = "/usr/bin/google-chrome"
	}

	// Launch visible browser
	url := launcher.New().
		Bin(binPath).
		Headless(false).
		// CRITICAL: Disable the "Automation" internal flags
		Set("disable-blink-features", "AutomationControlled").
		Set("exclude-switches", "enable-automation").

		// Standard "Human" Args
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", "1920,1080").
		Devtools(false).
		MustLaunch()

	browser := rod.New().
		ControlURL(url).
		MustConnect()

	defer browser.MustClose()

	// Create initial page
	page := stealth.MustPage(browser)

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("📋 Instructions:")
	fmt.Println("   - A browser window has opened")
	fmt.Println("   - Follow the prompts below")
	fmt.Println("   - Press ENTER after completing each step")
	fmt.Println("   - Type 'skip' to skip a page")
	fmt.Println("   - Type 'quit' to exit")
	fmt.Println()

	for _, capture := range capturePages {
		fmt.Println("────────────────────────────────────────────────────────────────")
		fmt.Printf("📄 Capturing: %s.html\n", capture.Name)
		fmt.Printf("📝 Instructions: %s\n", capture.Instructions)
		fmt.Print("   Press ENTER when ready (or 'skip'/'quit'): ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input == "quit" {
			fmt.Println("\n👋 Exiting...")
			break
		}

		if input == "skip" {
			fmt.Printf("   ⏭️  Skipped %s\n\n", capture.Name)
			continue
		}

		// -- Step 1: Wait for DOM to stabilize, including frames
		browserutil.WaitForFrames(page)
		time.Sleep(1 * time.Second)

		// -- Step 2: Screenshot BEFORE DOM modification --
		// Taking the screenshot before the inlining preserves visual fidelity
		screenshotPath := filepath.Join(outDir, capture.Name+".png")
		if buf, err := page.Screenshot(false, nil); err == nil {
			if writeErr := os.WriteFile(screenshotPath, buf, 0o644); writeErr != nil {
				fmt.Printf("   ⚠️  Error saving screenshot: %v\n", writeErr)
			} else {
				fmt.Printf("   📸 Screenshot: %s\n", screenshotPath)
			}
		} else {
			fmt.Printf("   ⚠️  Screenshot failed: %v\n", err)
		}

		// -- Step 3: Inline frames and capture merged HTML --
		// A plain page.HTML() on the portal's framesets returns the skeleton
		// with empty <frame> tags; the data lives inside the frames.
		html, frameCount, err := browserutil.InlineFrames(page)
		if err != nil {
			fmt.Printf("   ❌ Error capturing HTML: %v\n\n", err)
			continue
		}

		if frameCount > 0 {
			fmt.Printf("   🔲 Inlined %d frame(s) into captured HTML\n", frameCount)
		}

		// -- Step 4: Save HTML fixture --
		htmlPath := filepath.Join(outDir, capture.Name+".html")
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			fmt.Printf("   ❌ Error saving HTML: %v\n\n", err)
			continue
		}

		// Get page URL for reference
		pageURL := page.MustInfo().URL

		fmt.Printf("   ✅ Saved: %s\n", htmlPath)
		fmt.Printf("   🔗 URL: %s\n\n", pageURL)
	}

	// Save metadata
	saveMetadata(outDir, *portalCode)

	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("✅ Capture complete!")
	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Sanitize sensitive data before committing!")
	fmt.Println("   Run: go run ./scripts/sanitize-patterns/main.go -portal=" + *portalCode)
	fmt.Println("════════════════════════════════════════════════════════════════")
}

func saveMetadata(outDir, portalCode string) {
	metadata := fmt.Sprintf(`# Fixture Metadata
portal: %s
captured_at: %s
captured_by: %s

## Files
See .html files in this directory.
Screenshots (.png) provided for visual reference.

## Frame Handling

The portal renders everything inside framesets. Frame content is
automatically inlined during capture as:

    <div data-captured-frame="true" data-frame-tag="frame" data-frame-src="..." data-frame-name="...">
      <style data-from-frame="true">/* frame styles */</style>
      <!-- frame body content -->
    </div>

Parse inlined frame content with goquery:

    doc.Find("[data-captured-frame] .your-selector")

Target a specific frame by attribute:

    doc.Find("[data-frame-name='datamain'] table a")

## Notes
- These fixtures should be sanitized before committing
- Update when the portal changes
- Re-run capture if tests start failing
`, portalCode, time.Now().Format(time.RFC3339), os.Getenv("USER"))

	metaPath := filepath.Join(outDir, "README.md")
	os.WriteFile(metaPath, []byte(metadata), 0o644)
}
