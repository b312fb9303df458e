package listing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// IsMemberName reports whether raw is a library member name such as LIB/FILE(MBR)
// rather than an IFS path.
func IsMemberName(raw string) bool {
	return strings.HasSuffix(raw, ")")
}

// NormalizeName returns the canonical path used to group diagnostics.
func NormalizeName(raw string) string {
	if IsMemberName(raw) {
		return formatMember(raw)
	}
	return formatIFS(raw)
}

// formatMember turns LIB/FILE(MBR) into LIB/FILE/MBR.
func formatMember(raw string) string {
	open := strings.LastIndexByte(raw, '(')
	if open < 0 {
		return upper.String(raw)
	}
	member := raw[open+1 : len(raw)-1]
	parts := strings.Split(raw[:open], "/")
	parts = append(parts, member)

	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return upper.String(strings.Join(kept, "/"))
}

func formatIFS(raw string) string {
	parts := strings.Split(raw, "/")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		kept = append(kept, p)
	}
	path := strings.Join(kept, "/")
	if strings.HasPrefix(raw, "/") {
		return "/" + path
	}
	return path
}
