// Package pdf extracts paper metadata and text from PDF files.
package pdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document holds what could be recovered from a PDF. All metadata fields
// are best-effort heuristics and may be empty; Text and PageCount are
// always populated for a readable file.
type Document struct {
	Text      string
	PageCount int
	Title     string
	Abstract  string
	ArXivID   string
	DOI       string
}

// DefaultMaxPages bounds extraction; references past this point add noise,
// not signal.
const DefaultMaxPages = 30

// metadataPages is how many leading pages the title/abstract/identifier
// heuristics scan.
const metadataPages = 3

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// arXiv identifiers: new-style 2301.12345(v2) with optional arXiv: prefix.
var arxivPattern = regexp.MustCompile(`(?i)(?:arxiv:)?\b(\d{4}\.\d{4,5})(v\d+)?\b`)

var abstractHeading = regexp.MustCompile(`(?i)^\s*abstract\b[.:—-]?\s*`)

// ExtractDocument reads a PDF and returns its text together with whatever
// metadata the leading pages reveal.
func ExtractDocument(filePath string) (*Document, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	doc := &Document{PageCount: r.NumPage()}

	maxPages := DefaultMaxPages
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	var head strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
		if i <= metadataPages {
			head.WriteString(text)
			head.WriteString("\n")
		}
	}

	doc.Text = builder.String()
	headText := head.String()
	doc.Title = findTitle(headText)
	doc.Abstract = findAbstract(headText)
	doc.ArXivID = findArXivID(headText)
	doc.DOI = findDOI(headText)
	return doc, nil
}

// findTitle returns the first substantial line, skipping obvious
// headers and footers.
func findTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// findAbstract returns the paragraph following an "Abstract" heading,
// truncated at the next section-looking break.
func findAbstract(text string) string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if abstractHeading.MatchString(line) {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	// Inline abstracts put the text on the heading line itself.
	var parts []string
	if rest := abstractHeading.ReplaceAllString(lines[start], ""); strings.TrimSpace(rest) != "" {
		parts = append(parts, strings.TrimSpace(rest))
	}
	for _, line := range lines[start+1:] {
		line = strings.TrimSpace(line)
		if line == "" && len(parts) > 0 {
			break
		}
		if isSectionBreak(line) {
			break
		}
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// findArXivID returns the first arXiv identifier in the text, without any
// version suffix.
func findArXivID(text string) string {
	m := arxivPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// findDOI finds a DOI in text.
func findDOI(text string) string {
	matches := doiPattern.FindAllString(text, -1)
	for _, match := range matches {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return true
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "journal") {
		return true
	}
	if strings.Contains(lower, "volume") && strings.Contains(lower, "issue") {
		return true
	}
	if strings.Contains(lower, "copyright") {
		return true
	}
	if strings.HasPrefix(lower, "arxiv:") {
		return true
	}
	return false
}

// isSectionBreak reports whether a line starts a new section after the
// abstract.
func isSectionBreak(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "1 introduction"),
		strings.HasPrefix(lower, "1. introduction"),
		strings.HasPrefix(lower, "introduction"),
		strings.HasPrefix(lower, "keywords"),
		strings.HasPrefix(lower, "index terms"):
		return true
	}
	return false
}
