// Package materialize builds the working config consumed by the backup tool.
//
// Materializer.Materialize merges three sources field by field:
//
//	TOKEN env  >  persisted config  >  shipped template
//
// The persisted document, when present, is the starting point; otherwise the
// template is. The template may carry comments and trailing commas, which are
// stripped with tidwall/jsonc before parsing. "directory" is always forced to
// the mounted output path. A non-empty TOKEN replaces the token fields; without
// it the existing value is normalized in place (legacy "token" and comma
// strings become a "tokens" array, a missing field becomes []).
//
// The result is written to the working store and, unless disabled, back to the
// persisted store so later restarts keep manual edits. Failures are typed:
// *SourceError (cannot read), *ParseError (malformed JSON or token field),
// *WriteError (cannot write working or persisted copy). All are fatal at
// startup; nothing falls back to an empty document.
package materialize
