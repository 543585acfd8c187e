// Package links routes hyperlinks clicked in the editor preview.
package links

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"
)

const attachmentPrefix = "wiz://open_attachment"

// Action tells the host what to do with a clicked link.
type Action string

const (
	// ActionOpenDocument opens the linked note in the host.
	ActionOpenDocument Action = "open_document"
	// ActionOpenAttachment opens the linked attachment in the host.
	ActionOpenAttachment Action = "open_attachment"
	// ActionBrowser opens the link in the system browser.
	ActionBrowser Action = "browser"
	// ActionDefault lets the preview handle the link itself.
	ActionDefault Action = "default"
)

// Target is a parsed internal link.
type Target struct {
	GUID       string `json:"guid"`
	KBGUID     string `json:"kb_guid,omitempty"`
	Attachment bool   `json:"attachment"`
}

// Parse extracts the document or attachment target of href. It reports
// false when href carries no guid parameter.
func Parse(href string) (Target, bool) {
	guid := QueryValue(href, "guid")
	if guid == "" {
		return Target{}, false
	}
	return Target{
		GUID:       guid,
		KBGUID:     QueryValue(href, "kbguid"),
		Attachment: strings.Contains(href, attachmentPrefix),
	}, true
}

// QueryValue returns the first value of parameter name in the query part of
// href, with '+' read as a space and escapes decoded. Missing parameters
// yield "".
func QueryValue(href, name string) string {
	i := strings.IndexByte(href, '?')
	if i < 0 || !strings.Contains(href, name+"=") {
		return ""
	}
	for _, param := range strings.Split(href[i+1:], "&") {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key != name {
			continue
		}
		return Unescape(strings.ReplaceAll(value, "+", " "))
	}
	return ""
}

// Unescape decodes %XX and %uXXXX sequences. Malformed sequences are kept
// as they are.
func Unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var (
		b     strings.Builder
		units []uint16
	)
	flush := func() {
		if len(units) > 0 {
			b.WriteString(decodeUnits(units))
			units = units[:0]
		}
	}
	for i := 0; i < len(s); {
		if s[i] == '%' {
			if i+6 <= len(s) && s[i+1] == 'u' {
				if v, err := strconv.ParseUint(s[i+2:i+6], 16, 16); err == nil {
					units = append(units, uint16(v))
					i += 6
					continue
				}
			}
			if i+3 <= len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					units = append(units, uint16(v))
					i += 3
					continue
				}
			}
		}
		flush()
		b.WriteByte(s[i])
		i++
	}
	flush()
	return b.String()
}

// decodeUnits turns UTF-16 code units into a string; unpaired surrogates
// become U+FFFD.
func decodeUnits(units []uint16) string {
	var b strings.Builder
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if u >= 0xD800 && u < 0xDC00 && i+1 < len(units) {
			if l := rune(units[i+1]); l >= 0xDC00 && l < 0xE000 {
				b.WriteRune((u-0xD800)<<10 + (l - 0xDC00) + 0x10000)
				i++
				continue
			}
		}
		if u >= 0xD800 && u < 0xE000 {
			b.WriteRune(utf8.RuneError)
			continue
		}
		b.WriteRune(u)
	}
	return b.String()
}

// Opener opens internal link targets in the host. Errors mean the target
// could not be opened, e.g. an unknown GUID.
type Opener interface {
	Open(ctx context.Context, t Target) error
}

// Router decides how a clicked link is handled.
type Router struct {
	opener Opener
}

// NewRouter returns a Router that opens internal targets through opener.
func NewRouter(opener Opener) *Router {
	return &Router{opener: opener}
}

// Route returns the action for href. Links with a guid are opened in the
// host; when that fails, or for other links, the link goes to the browser
// if inBrowser is set and is otherwise left to the default handling.
func (r *Router) Route(ctx context.Context, href string, inBrowser bool) (Action, Target) {
	if t, ok := Parse(href); ok {
		if err := r.opener.Open(ctx, t); err == nil {
			if t.Attachment {
				return ActionOpenAttachment, t
			}
			return ActionOpenDocument, t
		}
	}
	if inBrowser {
		return ActionBrowser, Target{}
	}
	return ActionDefault, Target{}
}
