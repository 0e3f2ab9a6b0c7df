package schema

import "regexp"

type scrubRule struct {
	name string
	re   *regexp.Regexp
}

// Constructs removed from text and CSS fields. Applied repeatedly until the
// input stops changing so that nested payloads cannot reassemble.
var scrubRules = []scrubRule{
	{"markup", regexp.MustCompile(`(?is)<\s*/?\s*[a-z!][^>]*>`)},
	{"expression", regexp.MustCompile(`(?i)expression\s*\(`)},
	{"javascript_uri", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"vbscript_uri", regexp.MustCompile(`(?i)vbscript\s*:`)},
	{"html_data_uri", regexp.MustCompile(`(?i)data\s*:\s*text/html`)},
	{"import", regexp.MustCompile(`(?i)@import[^;]*;?`)},
	{"external_url", regexp.MustCompile(`(?i)url\s*\(\s*['"]?\s*(?:[a-z][a-z0-9+.-]*:)?//[^)]*\)`)},
	{"behavior", regexp.MustCompile(`(?i)behavior\s*:[^;}]*;?`)},
	{"moz_binding", regexp.MustCompile(`(?i)-moz-binding\s*:[^;}]*;?`)},
}

// Scrub strips unsafe constructs and returns the names of the rules that
// matched, in rule order.
func Scrub(s string) (string, []string) {
	seen := make(map[string]bool)
	for {
		changed := false
		for _, r := range scrubRules {
			if !r.re.MatchString(s) {
				continue
			}
			s = r.re.ReplaceAllString(s, "")
			seen[r.name] = true
			changed = true
		}
		if !changed {
			break
		}
	}

	var found []string
	for _, r := range scrubRules {
		if seen[r.name] {
			found = append(found, r.name)
		}
	}
	return s, found
}
