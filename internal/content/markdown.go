package content

import (
	"bytes"
	"html/template"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Typographer))
	// policy keeps inline formatting and links; content authors cannot inject markup.
	policy = bluemonday.UGCPolicy()
	// textPolicy strips everything, for untrusted plain text such as contact messages.
	textPolicy = bluemonday.StrictPolicy()
)

var blockTags = map[string]bool{
	"p": true, "br": true, "li": true, "ul": true, "ol": true, "div": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "blockquote": true,
}

// Markdown renders source to sanitised HTML.
func Markdown(source string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

// PlainText strips any markup from s and trims surrounding space. The result
// is unescaped text, ready to be escaped again by whatever renders it.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// Summary returns the text content of an HTML fragment with whitespace
// collapsed, cut at a word boundary so it fits in limit runes.
func Summary(fragment string, limit int) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
	var out strings.Builder
	count := 0
	for _, w := range splitWords(b.String()) {
		wl := len([]rune(w))
		sep := 0
		if count > 0 {
			sep = 1
		}
		if limit > 0 && count+sep+wl > limit-1 {
			if count == 0 {
				return string([]rune(w)[:limit-1]) + "…"
			}
			return out.String() + "…"
		}
		if sep == 1 {
			out.WriteByte(' ')
		}
		out.WriteString(w)
		count += sep + wl
	}
	return out.String()
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, unicode.IsSpace)
}
