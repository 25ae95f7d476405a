package automation

import (
	"github.com/entrhq/invoicefill/pkg/browser"
	"github.com/entrhq/invoicefill/pkg/invoice"
)

// loginStrategy is the data-driven description of one login protocol: the
// selector sets for its controls, and whether those selectors are probed as
// ordered candidates or taken as-is. Generic form targets are assumed
// schema-variable and probed; CAS and SSO pages are assumed schema-stable
// and use one fixed selector set each.
type loginStrategy struct {
	probeSelectors    bool
	usernameSelectors []string
	passwordSelectors []string
	submitSelectors   []string
}

// resolve picks the selector to use for one control. Probing strategies
// return the first candidate present in the live DOM; fixed strategies
// trust their first selector without touching the page.
func (s loginStrategy) resolve(page browser.ElementQuerier, candidates []string) (string, error) {
	if s.probeSelectors {
		return browser.FindFirstSelector(page, candidates)
	}
	return candidates[0], nil
}

var loginStrategies = map[invoice.LoginProtocol]loginStrategy{
	invoice.ProtocolForm: {
		probeSelectors: true,
		usernameSelectors: []string{
			`input[name="username"]`,
			`input[name="user"]`,
			`input[name="loginName"]`,
			`#username`,
			`#user`,
			`input[placeholder*="用户名"]`,
			`input[placeholder*="账号"]`,
		},
		passwordSelectors: []string{
			`input[name="password"]`,
			`input[name="pwd"]`,
			`input[type="password"]`,
			`#password`,
			`input[placeholder*="密码"]`,
		},
		submitSelectors: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
			`.login-btn`,
			`#loginBtn`,
			`.btn-login`,
			`button:has-text("登录")`,
			`button:has-text("登 录")`,
		},
	},
	invoice.ProtocolCAS: {
		usernameSelectors: []string{`#username`},
		passwordSelectors: []string{`#password`},
		submitSelectors:   []string{`.btn-submit, button[type="submit"], input[type="submit"]`},
	},
	invoice.ProtocolSSO: {
		usernameSelectors: []string{`input[name="username"], #username`},
		passwordSelectors: []string{`input[name="password"], #password`},
		submitSelectors:   []string{`#loginButton, .sso-login-btn, button[type="submit"]`},
	},
}
