// Package tokens turns the raw TOKEN environment value into the ordered list
// of GitHub access tokens written to the backup config.
//
// Normalize splits on "," and keeps every element byte-for-byte, including
// surrounding whitespace, so "a, b" yields ["a", " b"]. NormalizeTrimmed is
// the opt-in variant (settings key trim_tokens) that strips whitespace and
// drops empty elements; it changes observable behaviour and is off by default.
//
// Render encodes a token list as a JSON array with encoding/json, so tokens
// containing quotes or backslashes are always escaped.
package tokens
