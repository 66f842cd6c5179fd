package accounts

import (
	"fmt"
	"html"
	"time"
)

func resetEmailHTML(name, link string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hello %s,</p>
<p>We received a request to reset your password. Use the link below within %s:</p>
<p><a href="%s">Reset password</a></p>
<p>If you did not ask for this, you can ignore this email.</p>`,
		html.EscapeString(name), ttl.Round(time.Minute).String(), html.EscapeString(link))
}
