package filtering

import (
	"strings"
	"unicode"
	"unicode/utf8"

	regexp "github.com/wasilibs/go-re2"
)

const (
	// Name extraction searches a bounded prefix of the decoded text: the
	// first namePrefixLines lines, or the whole text when shorter than
	// nameFullTextLimit characters.
	namePrefixLines   = 50
	nameFullTextLimit = 10_000

	// Extracted and sanitized names are capped at maxNameLen characters.
	maxNameLen = 200
	minNameLen = 3

	// validNameMinPrintable is the minimum fraction of printable
	// characters for a string to pass as a plausible filename.
	validNameMinPrintable = 0.8

	// repeatedCharLimit rejects names containing a character repeated this
	// many times in a row; such runs are scanning artifacts, not names.
	repeatedCharLimit = 5
)

// accentedLetters are the non-ASCII letters preserved by the sanitizer and
// accepted inside extracted names. Anything else outside ASCII becomes `_`.
const accentedLetters = "áéíóúÁÉÍÓÚñÑ"

// namePatterns are the context-aware extraction patterns, ordered from
// explicit markers to weaker positional heuristics. Each captures a short
// alphanumeric stem plus a 2-5 character extension.
var namePatterns = []*regexp.Regexp{
	// Explicit filename markers.
	regexp.MustCompile(`(?im)(?:filename|file name|nombre archivo|archivo|file)[:\s=]+["']?([a-zA-Z0-9_\-áéíóúÁÉÍÓÚñÑ\s]{1,80}\.[a-zA-Z0-9]{2,5})["']?`),
	regexp.MustCompile(`(?im)(?:saved as|guardado como|save as|guardado|saved)[:\s=]+["']?([a-zA-Z0-9_\-áéíóúÁÉÍÓÚñÑ\s]{1,80}\.[a-zA-Z0-9]{2,5})["']?`),
	regexp.MustCompile(`(?im)(?:document|documento|file|archivo)\s+name[:\s=]+["']?([a-zA-Z0-9_\-áéíóúÁÉÍÓÚñÑ\s]{1,80}\.[a-zA-Z0-9]{2,5})["']?`),
	// Bare filename at the start of a line.
	regexp.MustCompile(`(?im)^([a-zA-Z][a-zA-Z0-9_\-áéíóúÁÉÍÓÚñÑ\s]{2,70}\.[a-zA-Z0-9]{2,5})`),
	// Absolute Windows paths.
	regexp.MustCompile(`(?im)([A-Z]:\\[a-zA-Z0-9_\-áéíóúÁÉÍÓÚñÑ\\\s]{5,100}\.[a-zA-Z0-9]{2,5})`),
	// Quoted names.
	regexp.MustCompile(`(?im)["']([a-zA-Z][a-zA-Z0-9_\-áéíóúÁÉÍÓÚñÑ\s]{2,70}\.[a-zA-Z0-9]{2,5})["']`),
	// Title/name markers.
	regexp.MustCompile(`(?im)(?:title|título|name|nombre)[:\s=]+["']?([a-zA-Z][a-zA-Z0-9_\-áéíóúÁÉÍÓÚñÑ\s]{2,70}\.[a-zA-Z0-9]{2,5})["']?`),
}

var (
	hasLetterRe     = regexp.MustCompile(`[a-zA-Z]`)
	separatorRunRe  = regexp.MustCompile(`[_\-\s]{3,}`)
	digitsOnlyRe    = regexp.MustCompile(`^[\d\s_\-.]+$`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
	dashRunRe       = regexp.MustCompile(`[-_]{2,}`)
)

// ExtractName mines the decoded text for a plausible original filename.
// All matches across all patterns are collected, independently sanitized and
// validity-checked, and the most frequently occurring valid candidate wins:
// a name that recurs through a document is far more likely to be its real
// filename than incidental text that happens to look like one. Returns ""
// when no valid candidate is found.
func ExtractName(text string) string {
	searchText := text
	if utf8.RuneCountInString(text) >= nameFullTextLimit {
		lines := strings.SplitN(text, "\n", namePrefixLines+1)
		if len(lines) > namePrefixLines {
			lines = lines[:namePrefixLines]
		}
		searchText = strings.Join(lines, "\n")
	}

	var candidates []string
	for _, re := range namePatterns {
		for _, match := range re.FindAllStringSubmatch(searchText, -1) {
			name := strings.Trim(match[1], "\"' \t\r\n")
			if i := strings.LastIndexAny(name, `\/`); i >= 0 {
				name = name[i+1:]
			}
			if IsValidName(name) {
				candidates = append(candidates, name)
			}
		}
	}

	var valid []string
	for _, name := range candidates {
		if clean := Sanitize(name); clean != "" && IsValidName(clean) {
			valid = append(valid, clean)
		}
	}
	if len(valid) == 0 {
		return ""
	}

	// Plurality vote; ties go to the earliest-seen candidate.
	counts := make(map[string]int, len(valid))
	best := ""
	bestCount := 0
	for _, name := range valid {
		counts[name]++
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}

// Sanitize rewrites a candidate name into a filesystem-safe string: control
// characters are stripped, reserved characters and unaccepted non-ASCII
// become underscores, whitespace and separator runs collapse, surrounding
// dots/spaces/separators are trimmed, and the result is capped at 200
// characters. Returns "" when nothing usable remains. Sanitize is
// idempotent.
func Sanitize(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ' || r == '\t':
			sb.WriteRune(' ')
		case strings.ContainsRune(`<>:"|?*\/`, r) || r == 0 || r == '\r' || r == '\n':
			sb.WriteRune('_')
		case r < utf8.RuneSelf:
			if unicode.IsPrint(r) {
				sb.WriteRune(r)
			}
		case strings.ContainsRune(accentedLetters, r):
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	out := whitespaceRunRe.ReplaceAllString(sb.String(), " ")
	out = dashRunRe.ReplaceAllString(out, "_")
	out = strings.Trim(out, ". -_")

	if runes := []rune(out); len(runes) > maxNameLen {
		out = string(runes[:maxNameLen])
		// Truncation can expose a new trailing separator.
		out = strings.Trim(out, ". -_")
	}

	if out == "" || !hasLetterRe.MatchString(out) {
		return ""
	}
	return out
}

// IsValidName reports whether the string plausibly is a real filename rather
// than a scanning artifact. It rejects names outside [3, 200] characters,
// separator runs of three or more, names without letters, names under 80%
// printable, digits-and-separators-only strings, and names with a character
// repeated five or more times consecutively.
func IsValidName(name string) bool {
	runes := []rune(name)
	if len(runes) < minNameLen || len(runes) > maxNameLen {
		return false
	}

	if separatorRunRe.MatchString(name) {
		return false
	}
	if !hasLetterRe.MatchString(name) {
		return false
	}

	printableCount := 0
	for _, r := range runes {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			printableCount++
		}
	}
	if float64(printableCount)/float64(len(runes)) < validNameMinPrintable {
		return false
	}

	if digitsOnlyRe.MatchString(name) {
		return false
	}

	// RE2 has no backreferences, so the repeated-character check is a loop.
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= repeatedCharLimit {
				return false
			}
		} else {
			run = 1
		}
	}

	return true
}
