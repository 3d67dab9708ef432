// Package configdoc is the JSON object model of the backup tool's config file.
//
// A Document keeps every top-level key as raw JSON, so keys the runner does
// not understand survive a parse/modify/serialize round trip unchanged. These
// keys are interpreted:
//   - tokens: array of GitHub access tokens (legacy: a comma string)
//   - token: legacy single-token field, folded into tokens
//   - directory: absolute path of the backup output root
//
// Marshal emits keys in sorted order with two-space indentation, so equal
// documents serialize to equal bytes.
package configdoc
