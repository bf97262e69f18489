// Package filtering decides which carved candidates are worth keeping. It
// excludes operating-system artifacts, enforces allowed-type lists, matches
// user search patterns with wildcard syntax, and mines decoded text for the
// original filename of a recovered document.
package filtering

import (
	"fmt"
	"path"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/carvex/carvex/internal/domain/detection"
)

// Config carries the exclusion lists the engine is built from.
type Config struct {
	// SystemFiles are filename fragments identifying well-known system
	// files (matched as substrings of the candidate name).
	SystemFiles []string

	// SystemExtensions are extensions of system binaries (".sys", ".dll").
	SystemExtensions []string

	// SystemDirectories are directory names excluded when they occur as a
	// real path segment (drive root, path root, or mid-path), not as a
	// mere substring.
	SystemDirectories []string
}

// Engine applies the keep/discard rules to candidate names.
type Engine struct {
	classifier *detection.Classifier

	systemFiles []string
	systemExts  []string
	systemDirs  []*regexp.Regexp
}

// NewEngine builds a filter engine over the given classifier and exclusion
// lists.
func NewEngine(classifier *detection.Classifier, cfg Config) (*Engine, error) {
	e := &Engine{classifier: classifier}

	for _, f := range cfg.SystemFiles {
		e.systemFiles = append(e.systemFiles, strings.ToLower(f))
	}
	for _, ext := range cfg.SystemExtensions {
		e.systemExts = append(e.systemExts, strings.ToLower(ext))
	}

	for _, dir := range cfg.SystemDirectories {
		re, err := compileSystemDir(dir)
		if err != nil {
			return nil, fmt.Errorf("compiling system directory pattern %q: %w", dir, err)
		}
		e.systemDirs = append(e.systemDirs, re)
	}

	return e, nil
}

// compileSystemDir builds an anchored, separator-aware pattern for one system
// directory name. The directory matches only at a drive root
// (`c:\windows\...`), a path root (`\windows\...`), or the start of a
// relative path (`windows\...`), never as a bare substring, so a user file
// like `myprogram_notes.txt` is not mistaken for `program files`.
func compileSystemDir(dir string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(strings.ToLower(dir))
	pattern := `(?:^[a-z]:\\` + quoted + `(?:\\|$))|(?:\\` + quoted + `(?:\\|$))|(?:^` + quoted + `\\)`
	return regexp.Compile(pattern)
}

// IsSystemPath reports whether the path (or bare name) denotes an operating
// system artifact: a known system filename fragment, a reserved `$` prefix on
// the final segment, a system binary extension, or placement inside a known
// system or installed-program directory.
func (e *Engine) IsSystemPath(p string) bool {
	if p == "" {
		return false
	}

	normalized := strings.ToLower(strings.ReplaceAll(p, "/", `\`))

	base := normalized
	if i := strings.LastIndex(normalized, `\`); i >= 0 {
		base = normalized[i+1:]
	}

	for _, fragment := range e.systemFiles {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}

	if strings.HasPrefix(base, "$") {
		return true
	}

	for _, ext := range e.systemExts {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}

	for _, re := range e.systemDirs {
		if re.MatchString(normalized) {
			return true
		}
	}

	return false
}

// WildcardToPattern converts a search pattern with `*` (zero or more
// characters) and `%` (one or more characters) wildcards into an anchored
// regular expression. A `%` at either end of the pattern matches zero or more
// characters, as in SQL LIKE; under anchored matching a leading or trailing
// one-or-more wildcard could never be satisfied at the name boundary. Escaped
// wildcards (`\*`, `\%`) are normalized to their unescaped forms before
// conversion. Returns nil for an empty pattern.
func WildcardToPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}

	normalized := strings.ReplaceAll(pattern, `\*`, "*")
	normalized = strings.ReplaceAll(normalized, `\%`, "%")

	runes := []rune(normalized)
	var sb strings.Builder
	sb.WriteString("^")
	for i, r := range runes {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '%':
			if i == 0 || i == len(runes)-1 {
				sb.WriteString(".*")
			} else {
				sb.WriteString(".+")
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")

	return regexp.Compile(sb.String())
}

// MatchesSearch reports whether the candidate name satisfies the search
// pattern. An empty pattern matches everything. Patterns with wildcards
// require a full case-insensitive match: against the full name when the
// pattern carries an extension, against the stem otherwise. Patterns without
// wildcards match by case-insensitive substring or stem prefix.
func (e *Engine) MatchesSearch(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	if name == "" {
		return false
	}

	name = strings.ToLower(name)
	pattern = strings.ToLower(pattern)

	nameExt := path.Ext(name)
	nameStem := strings.TrimSuffix(name, nameExt)
	patternExt := path.Ext(pattern)
	patternStem := strings.TrimSuffix(pattern, patternExt)

	if strings.ContainsAny(pattern, "*%") {
		if patternExt != "" {
			re, err := WildcardToPattern(pattern)
			return err == nil && re.MatchString(name)
		}
		re, err := WildcardToPattern(patternStem)
		return err == nil && re.MatchString(nameStem)
	}

	if patternExt != "" {
		return strings.Contains(name, pattern)
	}
	return strings.Contains(nameStem, patternStem) ||
		strings.Contains(name, patternStem) ||
		strings.HasPrefix(nameStem, patternStem)
}

// ApplyFilters runs the full filter chain on a candidate: system-path
// exclusion, allowed-type enforcement, and name search. It returns whether
// the candidate is accepted along with the signature-detected type label.
//
// Type enforcement is strict: the type is resolved preferring the name's own
// extension over the detected type, and a candidate whose type cannot be
// resolved at all is rejected rather than waved through.
func (e *Engine) ApplyFilters(name string, data []byte, allowedTypes []string, searchPattern string, filterSystem bool) (bool, string) {
	if name == "" {
		return false, ""
	}

	if filterSystem && e.IsSystemPath(name) {
		return false, ""
	}

	var detected string
	if len(data) > 0 {
		detected = e.classifier.DetectType(data)
	}

	if len(allowedTypes) > 0 {
		resolved := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
		if resolved == "" {
			resolved = detected
		}
		if resolved == "" {
			return false, detected
		}

		allowed := false
		for _, t := range allowedTypes {
			if strings.EqualFold(t, resolved) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, detected
		}
	}

	if !e.MatchesSearch(name, searchPattern) {
		return false, detected
	}

	return true, detected
}
