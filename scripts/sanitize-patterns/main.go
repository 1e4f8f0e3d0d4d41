package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var sanitizePatterns = []struct {
	Pattern     *regexp.Regexp
	Replacement string
	Description string
}{
	// Customer account pre-filled into the login form
	{
		regexp.MustCompile(`(name=["']CUST_ID["'][^>]*value=["'])[^"']+(["'])`),
		`${1}XXXXXXXXXX${2}`,
		"Customer account (login form value)",
	},

	// Company names in listing rows
	{
		regexp.MustCompile(`\p{Han}{2,12}(股份)?有限公司`),
		`某某股份有限公司`,
		"Company name",
	},

	// Taiwanese phone numbers
	{
		regexp.MustCompile(`\b09\d{2}-?\d{3}-?\d{3}\b`),
		`09XX-XXX-XXX`,
		"Mobile phone number",
	},
	{
		regexp.MustCompile(`\(0\d{1,2}\)\s?\d{3,4}-?\d{4}`),
		`(0X)XXXX-XXXX`,
		"Landline phone number",
	},

	// ASP session cookies leaked into inline scripts
	{
		regexp.MustCompile(`ASPSESSIONID[A-Z]+=[A-Z0-9]+`),
		`ASPSESSIONIDXXXXXXXX=REDACTED`,
		"ASP session cookie",
	},

	// Session tokens / CSRF tokens
	{
		regexp.MustCompile(`(?i)(token|csrf|session)["\s:=]+["']?[a-zA-Z0-9_-]{20,}["']?`),
		`$1="REDACTED"`,
		"Token",
	},

	// Cookies in HTML
	{
		regexp.MustCompile(`(?i)document\.cookie\s*=\s*["'][^"']+["']`),
		`document.cookie="REDACTED"`,
		"Cookie",
	},
}

func main() {
	portalCode := flag.String("portal", "", "Portal code: wedi")
	dryRun := flag.Bool("dry-run", false, "Show what would be changed without modifying files")
	flag.Parse()

	if *portalCode == "" {
		fmt.Println("Usage: go run main.go -portal=wedi [--dry-run]")
		os.Exit(1)
	}

	fixturesDir := filepath.Join("internal", "scraper", "portal", *portalCode, "testdata", "fixtures")

	files, err := filepath.Glob(filepath.Join(fixturesDir, "*.html"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No HTML files found in %s\n", fixturesDir)
		os.Exit(1)
	}

	fmt.Printf("🔒 Sanitizing fixtures for %s\n", *portalCode)
	if *dryRun {
		fmt.Println("    (DRY RUN - no files will be modified)")
	}
	fmt.Println()

	for _, file := range files {
		sanitizeFile(file, *dryRun)
	}

	fmt.Println()
	fmt.Println("✅ Sanitization complete!")
	if *dryRun {
		fmt.Println("    Run without --dry-run to apply changes")
	}
}

func sanitizeFile(path string, dryRun bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("❌ Error reading %s: %v\n", path, err)
		return
	}

	original := string(content)
	sanitized := original
	changes := []string{}

	for _, pattern := range sanitizePatterns {
		if pattern.Pattern.MatchString(sanitized) {
			matches := pattern.Pattern.FindAllString(sanitized, -1)
			sanitized = pattern.Pattern.ReplaceAllString(sanitized, pattern.Replacement)
			changes = append(changes, fmt.Sprintf("  - %s: %d matched", pattern.Description, len(matches)))
		}
	}

	filename := filepath.Base(path)

	if len(changes) == 0 {
		fmt.Printf("📄 %s: No sensitive data found\n", filename)
		return
	}

	fmt.Printf("📄 %s: Found sensitive data\n", filename)
	for _, change := range changes {
		fmt.Println(change)
	}

	// Check if we should write to the original file
	if !dryRun {
		if err := os.WriteFile(path, []byte(sanitized), 0o644); err != nil {
			fmt.Printf("    ❌ Error writing %s: %v\n ", path, err)
		} else {
			fmt.Println("    ✅ Sanitized and saved")
		}
	}
}
