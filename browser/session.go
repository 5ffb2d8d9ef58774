package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/growforge/planmesh/core"
)

// cookie is the serialized cookie shape stored in AuthSession.CookiesJSON.
type cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // unix seconds, 0 = session cookie
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
}

// RestoreSession implements Handle. It installs the session's cookie jar
// into the remote browser, which re-establishes the authenticated state
// without replaying a login flow.
func (h *chromeHandle) RestoreSession(_ context.Context, session core.AuthSession) error {
	if session.CookiesJSON == "" {
		return fmt.Errorf("session %s has no cookies", session.ID)
	}

	var cookies []cookie
	if err := json.Unmarshal([]byte(session.CookiesJSON), &cookies); err != nil {
		return fmt.Errorf("invalid cookie jar for session %s: %w", session.ID, err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("session %s has an empty cookie jar", session.ID)
	}

	return h.run(chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(timeFromUnixFloat(c.Expires))
				param = param.WithExpires(&expires)
			}
			if err := param.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s for %s: %w", c.Name, c.Domain, err)
			}
		}
		return nil
	}))
}

func timeFromUnixFloat(secs float64) time.Time {
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second)))
}
