package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobharvest/internal/extract"
)

// NextTokens are the folded anchor texts accepted as a "next page" control.
var NextTokens = []string{"next", "siguiente", ">", "»", "›", "→"}

// NextControl returns the document-order index of the first anchor whose
// visible text equals a next token, ignoring case and accents, or -1.
func NextControl(s *extract.Snapshot) int {
	idx := -1
	s.Find("a").EachWithBreak(func(i int, a *goquery.Selection) bool {
		if isNextText(a.Text()) {
			idx = i
			return false
		}
		return true
	})
	return idx
}

func isNextText(text string) bool {
	folded := extract.Fold(extract.CleanText(text))
	for _, tok := range NextTokens {
		if folded == tok {
			return true
		}
	}
	return false
}

// AdvanceMode selects how an ID run moves to more results.
type AdvanceMode string

const (
	AdvancePaginate AdvanceMode = "paginate"
	AdvanceScroll   AdvanceMode = "scroll"
)

// DefaultScroll is the wheel distance of one scroll step.
const DefaultScroll = 10000

// clickNext clicks the first live anchor whose text is a next token. The
// snapshot only decides whether a control exists: anchor positions in the
// captured markup can differ from the live page (template content, shadow
// roots), so the live element is matched by its text. ok is false when the
// snapshot has no next control.
func (d *Driver) clickNext(ctx context.Context, snap *extract.Snapshot) (ok bool, err error) {
	if NextControl(snap) < 0 {
		return false, nil
	}
	anchors, err := d.page.Find(ctx, "a")
	if err != nil {
		return true, err
	}
	for i, a := range anchors {
		text, err := a.Text(ctx)
		if err != nil || !isNextText(text) {
			continue
		}
		d.logger.Debug("clicking next control", "anchor", i, "text", strings.TrimSpace(text))
		return true, a.Click(ctx)
	}
	return true, fmt.Errorf("next control detached (page has %d anchors)", len(anchors))
}
