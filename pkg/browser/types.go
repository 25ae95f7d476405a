package browser

// Default values applied to every context and page in the pool. The target
// systems render fixed-width layouts tuned for desktop Chrome, so the pool
// pins a desktop viewport and a matching user agent.
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080

	// DefaultTimeout bounds every page-level action in milliseconds.
	DefaultTimeout = 30000.0

	// DefaultNavigationTimeout bounds navigations in milliseconds.
	DefaultNavigationTimeout = 60000.0

	// DefaultUserAgent is a realistic desktop Chrome UA. Some of the legacy
	// systems refuse to render on the headless-Chromium default UA.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultLocale matches the locale the target systems are served in.
	DefaultLocale = "zh-CN"
)

// launchArgs configure the shared Chromium engine. The internal systems run
// on self-signed certificates and some of them block pages that look like
// automation, so certificate checks and the automation marker are disabled.
var launchArgs = []string{
	"--no-sandbox",
	"--disable-gpu",
	"--disable-dev-shm-usage",
	"--ignore-certificate-errors",
	"--disable-blink-features=AutomationControlled",
	"--disable-features=VizDisplayCompositor",
}
