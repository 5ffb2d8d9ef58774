package core

import "time"

// AuthSession is a reusable authentication credential (serialized cookie jar)
// scoped to one site and one domain. Sessions are shared across every plan
// and instance of the same site; re-authenticating on each step would be
// wasteful, so the engine restores a session once per chain of plans.
type AuthSession struct {
	ID          string    `json:"id"`
	SiteID      string    `json:"site_id"`
	Domain      string    `json:"domain"`
	CookiesJSON string    `json:"cookies_json,omitempty"`
	IsValid     bool      `json:"is_valid"`
	LastUsedAt  time.Time `json:"last_used_at"`
	CreatedAt   time.Time `json:"created_at"`
}
