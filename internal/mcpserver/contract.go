package mcpserver

// FormatContract describes the Markdown conventions the editor pipeline
// preserves when a document is saved and loaded again.
const FormatContract = `# mdbridge Document Format Contract

Documents are stored as rich HTML by the note application. mdbridge keeps the
Markdown text verbatim inside that HTML, so any Markdown round-trips exactly.
A few conventions decide how images and links behave.

## Text

- Plain CommonMark/GFM. Headings, lists, tables, fenced code and emphasis are
  all kept as written.
- Line breaks, tabs and runs of spaces are preserved.
- The title is separate from the body. When a document is created without a
  title the first ` + "`" + `# H1` + "`" + ` heading becomes the title.

## Images

- Use ` + "`" + `![alt](locator)` + "`" + `. On save every locator is resolved:
  - ` + "`" + `index_files/<name>` + "`" + ` refers to an image already in the document.
  - An absolute local path or ` + "`" + `file://` + "`" + ` URI is copied into the document's
    ` + "`" + `index_files/` + "`" + ` folder and the locator is rewritten.
  - A locator whose file does not exist (including http URLs) is kept as is.
- Get remote images into a document with the ` + "`" + `import_asset` + "`" + ` tool and paste
  its ` + "`" + `markdownImage` + "`" + ` into the body; the save copies the file in.
- Image file names are escaped to ASCII and shortened; do not rely on the
  original name surviving.

## Links

- Link to another document with
  ` + "`" + `[text](wiz://open_document?guid=<GUID>)` + "`" + `. These links are listed as
  backlinks of the target.
- Any other URL is an ordinary link.

## Example

` + "```" + `markdown
# Weekly standup 2025-01-20

Attendees: Alice, Bob.

![Whiteboard](index_files/whiteboard.jpg)

## Action items

- Review the [design doc](wiz://open_document?guid=6f1c2b7e-0d0a-4c57-9a57-2b8d1f0e4c11)
- Update the roadmap
` + "```" + `
`
