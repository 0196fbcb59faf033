package scrivener

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// skippedDestinations are RTF groups that carry no document text.
var skippedDestinations = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
	"listtable":  true,
	"generator":  true,
	"rsidtbl":    true,
	"themedata":  true,
	"xmlnstbl":   true,
}

// rtfToText reduces RTF to its visible text. Scrivener stores scene text as
// simple RTF, so only paragraph breaks, escapes, hex bytes (cp1252) and
// \u unicode runs are interpreted; all other control words are dropped.
func rtfToText(rtf string) string {
	var out strings.Builder
	var stack []bool
	skip := false

	for i := 0; i < len(rtf); i++ {
		c := rtf[i]
		switch c {
		case '{':
			stack = append(stack, skip)
			if strings.HasPrefix(rtf[i+1:], `\*`) {
				skip = true
			} else if word, _, _ := controlWord(rtf, i+1); skippedDestinations[word] {
				skip = true
			}
		case '}':
			if n := len(stack); n > 0 {
				skip = stack[n-1]
				stack = stack[:n-1]
			}
		case '\\':
			if i+1 >= len(rtf) {
				continue
			}
			next := rtf[i+1]
			switch {
			case next == '\\' || next == '{' || next == '}':
				if !skip {
					out.WriteByte(next)
				}
				i++
			case next == '\'':
				if i+3 < len(rtf) {
					if b, err := strconv.ParseUint(rtf[i+2:i+4], 16, 8); err == nil && !skip {
						out.WriteRune(charmap.Windows1252.DecodeByte(byte(b)))
					}
				}
				i += 3
			case next == '\n' || next == '\r':
				if !skip {
					out.WriteByte('\n')
				}
				i++
			case next == '~':
				if !skip {
					out.WriteByte(' ')
				}
				i++
			case next == '_':
				if !skip {
					out.WriteByte('-')
				}
				i++
			case isLetter(next):
				word, param, end := controlWord(rtf, i+1)
				i = end - 1
				if skip {
					continue
				}
				switch word {
				case "par", "line", "sect", "page":
					out.WriteByte('\n')
				case "tab":
					out.WriteByte('\t')
				case "u":
					n, _ := strconv.Atoi(param)
					if n < 0 {
						n += 65536
					}
					out.WriteRune(rune(n))
					i = skipFallback(rtf, i+1) - 1
				}
			default:
				i++
			}
		case '\n', '\r':
		default:
			if !skip {
				out.WriteByte(c)
			}
		}
	}

	lines := strings.Split(out.String(), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// controlWord reads a control word starting at pos (just after the
// backslash). It returns the word, its numeric parameter and the index
// after the word and its optional delimiting space.
func controlWord(rtf string, pos int) (word, param string, end int) {
	if pos < len(rtf) && rtf[pos] == '\\' {
		pos++
	}
	start := pos
	for pos < len(rtf) && isLetter(rtf[pos]) {
		pos++
	}
	word = rtf[start:pos]
	pstart := pos
	if pos < len(rtf) && rtf[pos] == '-' {
		pos++
	}
	for pos < len(rtf) && rtf[pos] >= '0' && rtf[pos] <= '9' {
		pos++
	}
	param = rtf[pstart:pos]
	if pos < len(rtf) && rtf[pos] == ' ' {
		pos++
	}
	return word, param, pos
}

// skipFallback skips the single replacement character that follows a \u run.
func skipFallback(rtf string, pos int) int {
	if pos >= len(rtf) {
		return pos
	}
	if strings.HasPrefix(rtf[pos:], `\'`) {
		return pos + 4
	}
	if rtf[pos] == '\\' || rtf[pos] == '{' || rtf[pos] == '}' {
		return pos
	}
	return pos + 1
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
