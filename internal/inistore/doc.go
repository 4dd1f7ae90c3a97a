// Package inistore reads and writes the engine's section-based configuration
// file without disturbing the lines it does not own.
//
// Parsing is line oriented. A line of the form "[label]" opens a section and
// "key=value" lines belong to the most recently opened section. Comments,
// blank lines and anything unparseable are kept verbatim, as are lines before
// the first header (the preamble). Saving reproduces the original order and
// bytes of every untouched line; only properties set through the API are
// rewritten, as "key=value" with no spaces around the delimiter.
//
// Duplicate section labels are legal on disk and are preserved. Lookups by
// label return the first match in file order.
package inistore
