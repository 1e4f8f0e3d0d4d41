package wedi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

var (
	captchaCodePattern  = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	captchaLabelPattern = regexp.MustCompile(`識別碼[：:]\s*([A-Z0-9]{4})`)
	captchaWordPattern  = regexp.MustCompile(`\b[A-Z0-9]{4}\b`)
)

// tableCellNoise are 4-char uppercase words that show up in cell text on the
// login page but are never captcha codes.
var tableCellNoise = map[string]bool{
	"POST": true,
	"GET":  true,
	"HTTP": true,
}

// pageWordNoise extends tableCellNoise for the page-wide scan, which also
// sees raw markup words.
var pageWordNoise = map[string]bool{
	"POST": true,
	"GET":  true,
	"HTTP": true,
	"HTML": true,
	"HEAD": true,
	"BODY": true,
	"FORM": true,
}

// ExtractCaptcha finds the 4-character access code printed on the login page.
// The portal renders the code as plain text rather than an image, but where
// exactly varies between portal revisions, so detection is a cascade:
//
//  1. Red-font elements whose text is exactly 4 uppercase alphanumerics.
//  2. The labeled form 識別碼: XXXX anywhere in the page text.
//  3. Table cells holding exactly 4 uppercase alphanumerics.
//  4. Any 4-char uppercase alphanumeric word in the page text, skipping
//     markup words and year-like numbers.
//
// First hit wins. A missing code is reported as an error so the caller can
// decide whether to submit without one.
func ExtractCaptcha(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: %v", portal.ErrParsingFailed, err)
	}

	// Script and style blocks would pollute the text scans below.
	doc.Find("script, style").Remove()

	// Method 1: red font elements
	var code string
	doc.Find(SelectorCaptchaRedFont).EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if captchaCodePattern.MatchString(text) {
			code = text
			return false
		}
		return true
	})
	if code != "" {
		return code, nil
	}

	pageText := doc.Text()

	// Method 2: labeled 識別碼: XXXX
	if m := captchaLabelPattern.FindStringSubmatch(pageText); m != nil {
		return m[1], nil
	}

	// Method 3: table cells
	doc.Find("table td").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if captchaCodePattern.MatchString(text) && !tableCellNoise[text] {
			code = text
			return false
		}
		return true
	})
	if code != "" {
		return code, nil
	}

	// Method 4: page-wide word scan
	for _, word := range captchaWordPattern.FindAllString(pageText, -1) {
		if pageWordNoise[word] || isYearLike(word) {
			continue
		}
		return word, nil
	}

	return "", fmt.Errorf("%w: captcha code not found on login page", portal.ErrParsingFailed)
}

// isYearLike reports whether a 4-char word is a plausible calendar year.
func isYearLike(word string) bool {
	n, err := strconv.Atoi(word)
	if err != nil {
		return false
	}
	return n >= 1900 && n <= 2100
}

// ClassifyLoginAlert maps a login-time JS alert message to a sentinel error.
// The portal reports a wrong captcha and a wrong password with distinct
// alert texts; anything else is a generic login failure.
func ClassifyLoginAlert(message string) error {
	switch {
	case message == "":
		return nil
	case strings.Contains(message, "識別碼") && strings.Contains(message, "錯誤"):
		return fmt.Errorf("%w: %s", portal.ErrCaptchaRejected, message)
	case strings.Contains(message, "密碼") && strings.Contains(message, "錯誤"):
		return fmt.Errorf("%w: %s", portal.ErrInvalidCredentials, message)
	default:
		return fmt.Errorf("%w: %s", portal.ErrLoginFailed, message)
	}
}

// LoginVerdict decides whether the page reached after submitting the login
// form represents a live session. The portal redirects to the main menu on
// success, but some revisions land on an intermediate page, so a visible
// query-menu link also counts. The returned reason is for logging.
func LoginVerdict(pageURL, html string) (ok bool, reason string) {
	lowerURL := strings.ToLower(pageURL)

	if strings.Contains(lowerURL, strings.ToLower(MainMenuURLFragment)) {
		return true, "main_menu_url"
	}

	if hasQueryMenuLink(html) {
		return true, "query_menu_link"
	}

	if strings.Contains(lowerURL, LoginURLFragmentWedi) || strings.Contains(lowerURL, LoginURLFragmentLogin) {
		return false, "still_on_login_page"
	}

	return false, "unrecognized_page"
}

// hasQueryMenuLink reports whether any anchor on the page carries the
// query-menu text.
func hasQueryMenuLink(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	found := false
	doc.Find("a").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if strings.Contains(strings.TrimSpace(s.Text()), MenuTextQueryMenu) {
			found = true
			return false
		}
		return true
	})

	return found
}
