// Package transcode converts note documents between the host's persisted
// rich-HTML form and Markdown text.
package transcode

import "strings"

const (
	// MarkerName tags the hidden container that lists images authored as
	// Markdown. Images inside it are not flattened on load.
	MarkerName = "markdownimage"

	markerOpen  = `<ed_tag name="` + MarkerName + `" style="display:none;">`
	markerClose = `</ed_tag>`

	documentHead = `<!DOCTYPE html><html><head><style id="wiz_custom_css"></style></head><body>`
	documentTail = `</body></html>`
)

// MarkerBlock wraps the concatenated marker tags, or returns "" when there
// are none.
func MarkerBlock(tags []string) string {
	joined := strings.Join(tags, "")
	if joined == "" {
		return ""
	}
	return markerOpen + joined + markerClose
}

// WrapDocument wraps body in the persisted document skeleton.
func WrapDocument(body string) string {
	return documentHead + body + documentTail
}
