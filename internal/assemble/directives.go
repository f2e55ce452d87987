package assemble

import (
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// directive is a layout control embedded in the markdown as raw HTML.
type directive int

const (
	noDirective directive = iota
	directivePageBreak
	directiveKeepOpen
	directiveKeepClose
	directiveAvoidBreak
)

const (
	classPageBreak    = "page-break"
	classKeepTogether = "keep-together"
	classAvoidBreak   = "avoid-break-before"
	commentPageBreak  = "pagebreak"
)

// significantTokens tokenizes an HTML block, dropping whitespace-only text.
func significantTokens(markup string) []html.Token {
	z := html.NewTokenizer(strings.NewReader(markup))
	var toks []html.Token
	for {
		if z.Next() == html.ErrorToken {
			if z.Err() != io.EOF {
				return nil
			}
			return toks
		}
		tok := z.Token()
		if tok.Type == html.TextToken && strings.TrimSpace(tok.Data) == "" {
			continue
		}
		if tok.Type == html.DoctypeToken {
			continue
		}
		toks = append(toks, tok)
	}
}

// parseDirective recognizes the directive forms:
//
//	<div class="page-break"></div>   or   <!-- pagebreak -->
//	<div class="keep-together">      ...  </div>
//	<div class="avoid-break-before"></div>
//
// Class tokens and the comment text match case-insensitively.
func parseDirective(markup string) directive {
	toks := significantTokens(markup)
	switch len(toks) {
	case 1:
		t := toks[0]
		switch {
		case t.Type == html.CommentToken && strings.EqualFold(strings.TrimSpace(t.Data), commentPageBreak):
			return directivePageBreak
		case t.Type == html.EndTagToken && t.Data == "div":
			return directiveKeepClose
		case t.Type == html.StartTagToken && t.Data == "div" && hasClass(t, classKeepTogether):
			return directiveKeepOpen
		case t.Type == html.SelfClosingTagToken && t.Data == "div":
			return emptyDivDirective(t)
		}
	case 2:
		if toks[0].Type == html.StartTagToken && toks[0].Data == "div" &&
			toks[1].Type == html.EndTagToken && toks[1].Data == "div" {
			return emptyDivDirective(toks[0])
		}
	}
	return noDirective
}

func emptyDivDirective(t html.Token) directive {
	switch {
	case hasClass(t, classPageBreak):
		return directivePageBreak
	case hasClass(t, classAvoidBreak):
		return directiveAvoidBreak
	}
	return noDirective
}

func hasClass(t html.Token, class string) bool {
	for _, a := range t.Attr {
		if a.Key != "class" {
			continue
		}
		if slices.ContainsFunc(strings.Fields(a.Val), func(c string) bool {
			return strings.EqualFold(c, class)
		}) {
			return true
		}
	}
	return false
}

// imageSources returns the src of every <img> in markup.
func imageSources(markup string) []string {
	var srcs []string
	for _, t := range significantTokens(markup) {
		if (t.Type != html.StartTagToken && t.Type != html.SelfClosingTagToken) || t.Data != "img" {
			continue
		}
		for _, a := range t.Attr {
			if a.Key == "src" {
				srcs = append(srcs, a.Val)
			}
		}
	}
	return srcs
}

// singleImage reports whether markup is exactly one <img> element and
// returns its src and alt.
func singleImage(markup string) (src, alt string, ok bool) {
	toks := significantTokens(markup)
	if len(toks) != 1 || toks[0].Data != "img" {
		return "", "", false
	}
	for _, a := range toks[0].Attr {
		switch a.Key {
		case "src":
			src = a.Val
		case "alt":
			alt = a.Val
		}
	}
	return src, alt, src != ""
}
