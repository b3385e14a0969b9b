package helpers

import (
	"regexp"
	"strings"
)

const minFence = 3

var (
	inlineHTMLFence = regexp.MustCompile("(?is)```html\\s*(.*?)\\s*```")
	inlineFence     = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// WrapInFence wraps html in a fenced ```html block whose fence is longer than
// any backtick run inside html, so ExtractHTML recovers html byte for byte.
func WrapInFence(html string) string {
	fence := strings.Repeat("`", max(minFence, longestBacktickRun(html)+1))
	return fence + "html\n" + html + "\n" + fence
}

// ExtractHTML returns the raw document held in an LLM response.
//
// A fenced block tagged html wins, then the first fenced block of any kind,
// and otherwise the whole response is taken as HTML. Fences are read line by
// line first; a fence that is never closed runs to the end of the response.
// Fences opened or closed mid-line are only matched when no line fence exists.
func ExtractHTML(response string) string {
	lines := strings.Split(response, "\n")

	if body, ok := fencedBlock(lines, true); ok {
		return body
	}
	if m := inlineHTMLFence.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	if body, ok := fencedBlock(lines, false); ok {
		return body
	}
	if m := inlineFence.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

func fencedBlock(lines []string, htmlOnly bool) (string, bool) {
	for i, line := range lines {
		n, info, ok := openingFence(line)
		if !ok {
			continue
		}
		if htmlOnly && !strings.EqualFold(firstWord(info), "html") {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			if closingFence(lines[j], n) {
				end = j
				break
			}
		}
		body := strings.Join(lines[i+1:end], "\n")
		if end == len(lines) && strings.TrimSpace(body) == "" {
			// a dangling fence closing an inline block
			continue
		}
		return body, true
	}
	return "", false
}

// openingFence reports the backtick count and info string of a fence line.
func openingFence(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return 0, "", false
	}
	n := leadingBackticks(trimmed)
	if n < minFence {
		return 0, "", false
	}
	info := strings.TrimSpace(trimmed[n:])
	if strings.Contains(info, "`") {
		return 0, "", false
	}
	return n, info, true
}

func closingFence(line string, open int) bool {
	trimmed := strings.TrimRight(strings.TrimLeft(line, " "), " \t\r")
	n := leadingBackticks(trimmed)
	return n >= open && n == len(trimmed)
}

func leadingBackticks(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

func longestBacktickRun(s string) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return longest
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
