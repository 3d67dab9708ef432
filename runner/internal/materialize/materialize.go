package materialize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/jsonc"

	"github.com/djekl/docker-github-backup/runner/internal/configdoc"
	"github.com/djekl/docker-github-backup/runner/internal/docstore"
	"github.com/djekl/docker-github-backup/runner/internal/tokens"
)

// Materializer reconciles the template, persisted and working config documents.
type Materializer struct {
	// Template is the read-only shipped example config.
	Template docstore.Store

	// Persisted survives restarts. May be nil when persistence is not used.
	Persisted docstore.Store

	// Working is the document handed to the backup tool.
	Working docstore.Store

	// Directory is the absolute output path forced into every document.
	Directory string

	// WriteBack saves the reconciled document to Persisted.
	WriteBack bool

	// TrimTokens selects tokens.NormalizeTrimmed over tokens.Normalize.
	TrimTokens bool

	Logger *slog.Logger
}

// Overrides are the environment-supplied values applied on top of the sources.
type Overrides struct {
	// Tokens is the raw TOKEN value. A value that normalizes to no tokens
	// leaves the document's tokens alone.
	Tokens string
}

// Materialize produces, stores and returns the working config document.
func (m *Materializer) Materialize(ctx context.Context, ov Overrides) (*configdoc.Document, error) {
	log := m.logger()

	doc, source, persistedRaw, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := doc.SetString(configdoc.KeyDirectory, m.Directory); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	override := m.normalize(ov.Tokens)
	if len(override) > 0 {
		if err := setTokens(doc, override); err != nil {
			return nil, &ParseError{Source: "TOKEN", Err: err}
		}
		doc.Delete(configdoc.KeyToken)
	} else if err := m.canonicalTokens(doc); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	out, err := doc.Marshal()
	if err != nil {
		return nil, &WriteError{Target: m.Working.Location(), Err: err}
	}

	if err := m.Working.Save(ctx, out); err != nil {
		return nil, &WriteError{Target: m.Working.Location(), Err: err}
	}

	if m.WriteBack && m.Persisted != nil && !bytes.Equal(persistedRaw, out) {
		if err := m.Persisted.Save(ctx, out); err != nil {
			return nil, &WriteError{Target: m.Persisted.Location(), Err: err}
		}
		log.Info("materialize: persisted config updated", "path", m.Persisted.Location())
	}

	toks, _ := doc.Tokens()
	redacted := make([]string, len(toks))
	for i, tok := range toks {
		redacted[i] = tokens.Redact(tok)
	}
	log.Info("materialize: working config written",
		"path", m.Working.Location(),
		"source", source,
		"directory", m.Directory,
		"tokens", len(toks),
		"token_suffixes", redacted,
		"token_override", len(override) > 0,
	)
	if len(toks) == 0 {
		log.Warn("materialize: no tokens configured, backups will fail until TOKEN is set")
	}
	return doc, nil
}

// load returns the starting document, a description of its source and, when
// it came from the persisted store, the raw persisted bytes.
func (m *Materializer) load(ctx context.Context) (*configdoc.Document, string, []byte, error) {
	if m.Persisted != nil {
		data, err := m.Persisted.Load(ctx)
		switch {
		case err == nil:
			doc, err := configdoc.Parse(data)
			if err != nil {
				return nil, "", nil, &ParseError{Source: m.Persisted.Location(), Err: err}
			}
			return doc, m.Persisted.Location(), data, nil
		case !docstore.IsNotExist(err):
			return nil, "", nil, &SourceError{Source: m.Persisted.Location(), Err: err}
		}
	}

	if m.Template == nil {
		return nil, "", nil, &SourceError{Source: "template", Err: errors.New("no template configured")}
	}
	data, err := m.Template.Load(ctx)
	if err != nil {
		return nil, "", nil, &SourceError{Source: m.Template.Location(), Err: err}
	}
	doc, err := configdoc.Parse(jsonc.ToJSON(data))
	if err != nil {
		return nil, "", nil, &ParseError{Source: m.Template.Location(), Err: err}
	}
	return doc, m.Template.Location(), nil, nil
}

// canonicalTokens rewrites whatever token fields doc carries into a single
// "tokens" array of strings.
func (m *Materializer) canonicalTokens(doc *configdoc.Document) error {
	switch doc.Kind(configdoc.KeyTokens) {
	case "array":
		if _, err := doc.Tokens(); err != nil {
			return err
		}
		doc.Delete(configdoc.KeyToken)
		return nil
	case "string":
		raw, _, err := doc.String(configdoc.KeyTokens)
		if err != nil {
			return err
		}
		doc.Delete(configdoc.KeyToken)
		return setTokens(doc, m.normalize(raw))
	case "":
	default:
		return fmt.Errorf("%s: must be an array of strings or a comma-separated string, got %s",
			configdoc.KeyTokens, doc.Kind(configdoc.KeyTokens))
	}

	// No "tokens" field.
	switch doc.Kind(configdoc.KeyToken) {
	case "string":
		legacy, _, err := doc.String(configdoc.KeyToken)
		if err != nil {
			return err
		}
		doc.Delete(configdoc.KeyToken)
		if legacy == "" {
			return setTokens(doc, nil)
		}
		return setTokens(doc, []string{legacy})
	case "array":
		legacy, _, err := doc.Strings(configdoc.KeyToken)
		if err != nil {
			return err
		}
		doc.Delete(configdoc.KeyToken)
		return setTokens(doc, legacy)
	case "":
		return setTokens(doc, nil)
	default:
		return fmt.Errorf("%s: must be a string, got %s", configdoc.KeyToken, doc.Kind(configdoc.KeyToken))
	}
}

// setTokens stores toks as the document's "tokens" array.
func setTokens(doc *configdoc.Document, toks []string) error {
	raw, err := tokens.Render(toks)
	if err != nil {
		return err
	}
	return doc.SetRaw(configdoc.KeyTokens, raw)
}

func (m *Materializer) normalize(raw string) []string {
	if m.TrimTokens {
		return tokens.NormalizeTrimmed(raw)
	}
	return tokens.Normalize(raw)
}

func (m *Materializer) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
