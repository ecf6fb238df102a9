package safety

import "strings"

// Summary is a deduplicated, human-readable view of a Response.
type Summary struct {
	// Links are the matched URLs with "/" replaced by ">" so chat clients
	// do not render them clickable.
	Links     []string
	Platforms []string
	Threats   []string
}

// Summarize humanizes the matches of r in the order they were returned.
func Summarize(r *Response) Summary {
	var s Summary
	if r == nil {
		return s
	}
	for _, m := range r.Matches {
		s.Platforms = AddIfNotPresent(s.Platforms, Humanize(m.PlatformType))
		s.Threats = AddIfNotPresent(s.Threats, Humanize(m.ThreatType))
		s.Links = append(s.Links, Defang(m.Threat.URL))
	}
	return s
}

// Defang replaces every "/" with ">".
func Defang(link string) string {
	return strings.ReplaceAll(link, "/", ">")
}

// JoinWithAnd joins elements as "a, b and c".
func JoinWithAnd(elements []string) string {
	switch len(elements) {
	case 0:
		return ""
	case 1:
		return elements[0]
	default:
		return strings.Join(elements[:len(elements)-1], ", ") + " and " + elements[len(elements)-1]
	}
}

// AddIfNotPresent appends element unless arr already holds it.
func AddIfNotPresent(arr []string, element string) []string {
	for _, e := range arr {
		if e == element {
			return arr
		}
	}
	return append(arr, element)
}

// Humanize lowercases s and turns underscores into spaces, so
// "SOCIAL_ENGINEERING" reads "social engineering".
func Humanize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", " ")
}
