package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// Values written to the apply_type field.
const (
	ApplyEmail    = "email"
	ApplyWebsite  = "website"
	ApplyExternal = "external"
)

var emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)*\.[A-Za-z]{2,}`)

var imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// FindEmail returns the first email-shaped token in text. Retina asset names
// such as "logo@2x.png" are skipped.
func FindEmail(text string) string {
	for _, m := range emailPattern.FindAllString(text, -1) {
		lower := strings.ToLower(m)
		asset := false
		for _, s := range imageSuffixes {
			if strings.HasSuffix(lower, s) {
				asset = true
				break
			}
		}
		if !asset {
			return m
		}
	}
	return ""
}

// ContactRule classifies how a posting is applied to.
type ContactRule struct {
	// Links is tried in order for an outbound apply link.
	Links Cascade
	// LinkType is written to apply_type when only a link is found.
	LinkType string
}

// DefaultContactRule matches links whose path carries apply intent.
func DefaultContactRule() *ContactRule {
	return &ContactRule{
		Links: Cascade{
			Attr("a[href*='apply']", "href"),
			Attr("a[href*='postula']", "href"),
			Attr("a[href*='aplicar']", "href"),
			Attr("a.button.apply", "href"),
			Attr("a[href^='mailto:']", "href"),
		},
		LinkType: ApplyWebsite,
	}
}

// Contact is the result of contact classification. Type is empty when no
// method was found.
type Contact struct {
	Email string
	URL   string
	Type  string
}

// Classify scans the visible text for an email first, then falls back to an
// apply link. A mailto link counts as an email.
func (c *ContactRule) Classify(s *Snapshot) Contact {
	var out Contact
	link, _, _ := c.Links.Resolve(s, nil)
	if strings.HasPrefix(strings.ToLower(link), "mailto:") {
		addr := link[len("mailto:"):]
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if dec, err := url.PathUnescape(addr); err == nil {
			addr = dec
		}
		out.Email = strings.TrimSpace(addr)
		link = ""
	}
	if link != "" {
		out.URL = s.Resolve(link)
	}

	if email := FindEmail(s.Text()); email != "" {
		out.Email = email
	}

	switch {
	case out.Email != "":
		out.Type = ApplyEmail
	case out.URL != "":
		out.Type = c.LinkType
		if out.Type == "" {
			out.Type = ApplyWebsite
		}
	}
	return out
}
