package wedi

import "time"

// CSS Selectors for the WEDI freight portal
const (
	// Login page
	SelectorUserInput     = "input[name='CUST_ID']"
	SelectorPasswordInput = "input[name='CUST_PASSWORD']"
	SelectorCaptchaInput  = "input[name='KEY_RND']"
	SelectorLoginSubmit   = "input[type='submit']"

	// Captcha is printed on the login page itself, usually in red
	SelectorCaptchaRedFont = `font[color="red"], font[color="#ff0000"], font[color="#FF0000"], [style*="color:red"], [style*="color: red"]`

	// Main menu after login
	QueryFrameName     = "datamain"
	SelectorQueryFrame = "iframe[name='datamain'], frame[name='datamain']"

	// Detail page export control. The portal attaches the export data as a
	// JSON blob in a data attribute on the download button.
	SelectorFileBlobButton = "button[data-fileblob]"
	SelectorFileBlobAny    = "[data-fileblob]"
)

// Link texts used for menu navigation. The portal is frame-based ASP with
// no stable ids, so navigation goes by visible anchor text.
const (
	MenuTextQueryMenu     = "查詢作業"
	MenuTextQueryPage     = "查件頁面"
	MenuTextQueryPartial  = "查件"
	MainMenuURLFragment   = "wedimainmenu.asp"
	LoginURLFragmentLogin = "login"
	LoginURLFragmentWedi  = "wedilogin"
)

// Query form submit cascade, tried in order.
var querySubmitSelectors = []string{
	"input[value*='查詢']",
	"button[title*='查詢']",
	"input[type='submit']",
	"button[type='submit']",
	"input[value*='搜尋']",
}

// Timing constants. The portal re-renders after every interaction with no
// reliable completion event, so fixed settle waits back up the bounded
// element waits.
const (
	DefaultWait      = 10 * time.Second
	PageLoadWait     = 5 * time.Second
	FrameSwitchWait  = 2 * time.Second
	QuerySubmitWait  = 3 * time.Second
	LoginRetryDelay  = 2 * time.Second
	DOMPollInterval  = 500 * time.Millisecond
	MaxLoginAttempts = 3
)

// DefaultBaseURL is the production portal entry point. Override with
// WEDI_BASE_URL or WithBaseURL for staging mirrors and replay tests.
const DefaultBaseURL = "http://wedinlb03.e-can.com.tw/wEDI2012/wedilogin.asp"
