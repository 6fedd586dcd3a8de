package format

import (
	"strconv"
	"strings"
)

// token is either literal text or a {hole} of an output or message template.
type token struct {
	text string

	hole bool
	raw  string
	name string
	// destructure is '@' for JSON rendering, '$' for stringification, else 0.
	destructure byte
	format      string
	// alignment pads to the given width; negative values left-align.
	alignment int
}

// maxAlignment bounds the padding width of a hole.
const maxAlignment = 1024

// parse splits a template into literal text and holes. Malformed holes are
// kept as literal text.
func parse(template string) []token {
	var (
		tokens  []token
		literal strings.Builder
	)
	flushLiteral := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, token{text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			literal.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			literal.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				literal.WriteString(template[i:])
				i = len(template)
				continue
			}
			raw := template[i : i+end+2]
			if tok, ok := parseHole(raw); ok {
				flushLiteral()
				tokens = append(tokens, tok)
			} else {
				literal.WriteString(raw)
			}
			i += end + 2
		default:
			literal.WriteByte(c)
			i++
		}
	}
	flushLiteral()

	return tokens
}

func parseHole(raw string) (token, bool) {
	tok := token{hole: true, raw: raw}
	body := raw[1 : len(raw)-1]

	if body != "" && (body[0] == '@' || body[0] == '$') {
		tok.destructure = body[0]
		body = body[1:]
	}

	if idx := strings.IndexByte(body, ':'); idx >= 0 {
		tok.format = body[idx+1:]
		body = body[:idx]
	}
	if idx := strings.IndexByte(body, ','); idx >= 0 {
		width, err := strconv.Atoi(strings.TrimSpace(body[idx+1:]))
		if err != nil {
			return token{}, false
		}
		tok.alignment = max(-maxAlignment, min(width, maxAlignment))
		body = body[:idx]
	}

	if !validName(body) {
		return token{}, false
	}
	tok.name = body

	return tok, true
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return false
		}
	}
	return true
}

func pad(s string, alignment int) string {
	width := alignment
	if width < 0 {
		width = -width
	}
	n := len([]rune(s))
	if n >= width {
		return s
	}
	fill := strings.Repeat(" ", width-n)
	if alignment < 0 {
		return s + fill
	}
	return fill + s
}
