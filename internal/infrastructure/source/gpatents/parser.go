package gpatents

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/domain/patent"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

var (
	patentLink    = regexp.MustCompile(`/patent/US(\d+)`)
	leadingNumber = regexp.MustCompile(`^\d+\s*[.)]`)
	spaceBefore   = regexp.MustCompile(`\s+([.,;:)])`)
)

// blockElements get whitespace at their edges; every other element is inline
// and joins its text to its neighbours as is.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "hr": true, "li": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "td": true,
	"th": true, "tr": true, "ul": true,
	"claim": true, "claim-statement": true, "claim-text": true,
}

// parsed is the structural content extracted from one document page.
type parsed struct {
	claims     string
	sections   []patent.Section
	candidates []ptypes.Number
}

// parseDocument parses page HTML.  ok is false when the page carries no
// claims marker, which means the variant did not resolve to a patent page.
func parseDocument(r io.Reader, self ptypes.Number, policy *family.SectionPolicy) (*parsed, bool, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, false, err
	}

	region := findClaimsRegion(root)
	if region == nil {
		return nil, false, nil
	}

	out := &parsed{claims: extractClaims(region)}
	out.sections, out.candidates = collectSections(root, self, policy)
	return out, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Claims
// ─────────────────────────────────────────────────────────────────────────────

func findClaimsRegion(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		if attr(n, "itemprop") == "claims" {
			return n
		}
		if n.DataAtom == atom.Section && attr(n, "id") == "claims" {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findClaimsRegion(c); found != nil {
			return found
		}
	}
	return nil
}

// extractClaims joins the outermost claim elements of region in document
// order, numbering any claim that does not already start with its number.
// Without tagged claims the region's own text is used.
func extractClaims(region *html.Node) string {
	var claimNodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (hasClass(n, "claim") || hasClass(n, "claim-text")) {
			claimNodes = append(claimNodes, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := region.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	if len(claimNodes) == 0 {
		return textContent(region)
	}

	parts := make([]string, 0, len(claimNodes))
	for _, n := range claimNodes {
		text := textContent(n)
		if text == "" {
			continue
		}
		if !leadingNumber.MatchString(text) {
			text = fmt.Sprintf("%d. %s", len(parts)+1, text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// ─────────────────────────────────────────────────────────────────────────────
// Sections and candidates
// ─────────────────────────────────────────────────────────────────────────────

// collectSections splits the document at each <h2> and harvests patent links
// from every section.  Only family sections contribute candidates.
func collectSections(root *html.Node, self ptypes.Number, policy *family.SectionPolicy) ([]patent.Section, []ptypes.Number) {
	var (
		sections   []patent.Section
		candidates []ptypes.Number
		seen       = map[ptypes.Number]bool{}
		refSeen    map[ptypes.Number]bool
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.H2 {
				header := textContent(n)
				sections = append(sections, patent.Section{Header: header, Class: policy.Classify(header)})
				refSeen = map[ptypes.Number]bool{}
				return
			}
			if len(sections) > 0 {
				current := &sections[len(sections)-1]
				if current.Class != family.SectionIgnored {
					for _, num := range linkedNumbers(n, self) {
						if !refSeen[num] {
							refSeen[num] = true
							current.References = append(current.References, num)
						}
						if current.Class == family.SectionFamily && !seen[num] {
							seen[num] = true
							candidates = append(candidates, num)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if candidates == nil {
		candidates = []ptypes.Number{}
	}
	return sections, candidates
}

// linkedNumbers returns the patent numbers referenced by n's href and data-*
// attributes, minus self and anything too short to be a patent.
func linkedNumbers(n *html.Node, self ptypes.Number) []ptypes.Number {
	var out []ptypes.Number
	for _, a := range n.Attr {
		if a.Key != "href" && !strings.HasPrefix(a.Key, "data-") {
			continue
		}
		for _, m := range patentLink.FindAllStringSubmatch(a.Val, -1) {
			num, err := ptypes.Normalize(m[1])
			if err != nil || num.DigitCount() < ptypes.MinCandidateDigits {
				continue
			}
			if num == self || num.ZeroPad() == self.ZeroPad() {
				continue
			}
			out = append(out, num)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// DOM helpers
// ─────────────────────────────────────────────────────────────────────────────

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent returns n's text with whitespace runs collapsed.  Inline
// markup such as <claim-ref> or <i> adds no spacing of its own.  Script and
// style bodies are skipped.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte(' ')
		}
	}
	walk(n)
	text := strings.Join(strings.Fields(sb.String()), " ")
	return spaceBefore.ReplaceAllString(text, "$1")
}

//Personal.AI order the ending
