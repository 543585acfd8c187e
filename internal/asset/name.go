package asset

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	// MaxNameLen bounds canonical asset names.
	MaxNameLen = 50
	// truncatedNameLen is the length an over-long name is cut back to,
	// extension included.
	truncatedNameLen = 35
)

// CanonicalName escapes base so that it only contains characters that are safe
// in file names and URLs, and bounds its length by MaxNameLen.
func CanonicalName(base string) string {
	stem, ext := splitExt(escapeName(base))
	return boundName(stem, "", ext)
}

// StampedName returns the canonical name of base with stamp appended to the
// stem, bounded by MaxNameLen.
func StampedName(base string, stamp int64) string {
	stem, ext := splitExt(escapeName(base))
	if len(stem)+len(ext) > MaxNameLen {
		stem = cutStem(stem, ext)
	}
	return boundName(stem, strconv.FormatInt(stamp, 10), ext)
}

// boundName joins stem, suffix and ext, shortening stem when the result would
// exceed MaxNameLen.
func boundName(stem, suffix, ext string) string {
	name := stem + suffix + ext
	if len(name) <= MaxNameLen {
		return name
	}
	name = cutStem(stem, ext) + suffix + ext
	if len(name) > MaxNameLen {
		// Only a pathological extension gets here.
		name = name[:MaxNameLen]
	}
	return name
}

func cutStem(stem, ext string) string {
	keep := truncatedNameLen - len(ext)
	if keep < 0 {
		keep = 0
	}
	if keep < len(stem) {
		return stem[:keep]
	}
	return stem
}

func splitExt(name string) (string, string) {
	pos := strings.LastIndexByte(name, '.')
	if pos < 0 || len(name)-pos > truncatedNameLen {
		return name, ""
	}
	return name[:pos], name[pos:]
}

// escapeName percent-escapes every UTF-16 unit outside A-Z a-z 0-9 @*_+-./
// (%XX below 256, %uXXXX above) and turns the escape delimiter into '_'.
func escapeName(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u < 0x80 && isUnreserved(byte(u)):
			b.WriteByte(byte(u))
		case u < 0x100:
			b.WriteByte('_')
			b.WriteByte(hex[u>>4])
			b.WriteByte(hex[u&0xF])
		default:
			b.WriteString("_u")
			b.WriteByte(hex[u>>12])
			b.WriteByte(hex[(u>>8)&0xF])
			b.WriteByte(hex[(u>>4)&0xF])
			b.WriteByte(hex[u&0xF])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("@*_+-./", c) >= 0
}
