package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/onboard/internal/domain"
)

var (
	// ErrNoManifest is returned for an empty or null document.
	ErrNoManifest = errors.New("manifest is empty")
	// ErrMalformed is returned when the document does not describe a valid app listing.
	ErrMalformed = errors.New("malformed manifest")
)

// Parse decodes a console manifest document into a domain.Manifest.
//
// The document is either a full console config object or a bare list of
// app entries. JSON objects and lists are read with encoding/json since
// yaml.v3 rejects some valid JSON (\/ escapes, repeated keys); anything
// else is read as YAML.
func Parse(data []byte) (*domain.Manifest, error) {
	if trimmed := bytes.TrimSpace(data); isJSONContainer(trimmed) {
		return parseJSON(trimmed)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrNoManifest
	}

	root := doc.Content[0]
	var cfg consoleConfig

	switch {
	case root.Kind == yaml.ScalarNode && root.Tag == "!!null":
		return nil, ErrNoManifest
	case root.Kind == yaml.SequenceNode:
		if err := root.Decode(&cfg.Apps); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case root.Kind == yaml.MappingNode:
		if err := root.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: line %d: expected an object or a list", ErrMalformed, root.Line)
	}

	return toDomain(&cfg)
}

func isJSONContainer(data []byte) bool {
	if len(data) == 0 || (data[0] != '{' && data[0] != '[') {
		return false
	}
	// YAML flow collections such as {apps: [a]} are not JSON.
	return json.Valid(data)
}

func parseJSON(data []byte) (*domain.Manifest, error) {
	var cfg consoleConfig
	var err error
	if data[0] == '[' {
		err = json.Unmarshal(data, &cfg.Apps)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return toDomain(&cfg)
}

// toDomain maps the wire document to the domain model.
func toDomain(cfg *consoleConfig) (*domain.Manifest, error) {
	m := &domain.Manifest{
		Apps:           make([]domain.App, 0, len(cfg.Apps)),
		AllowCustomApp: cfg.ShowAppTextInput,
		Realms:         domain.RealmPolicy{Selectable: true},
	}

	if cfg.ShowRealmTextInput != nil {
		m.Realms.Selectable = *cfg.ShowRealmTextInput
	}
	if realm := strings.TrimSpace(cfg.Realm); realm != "" {
		m.Realms.Default = domain.Realm(realm)
	}

	seen := make(map[string]bool, len(cfg.Apps))
	for i, entry := range cfg.Apps {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: app #%d has no name", ErrMalformed, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate app %q", ErrMalformed, name)
		}
		seen[name] = true

		app := domain.App{Name: name}
		if realm := strings.TrimSpace(entry.Realm); realm != "" {
			app.Realm = domain.Realm(realm)
		}
		m.Apps = append(m.Apps, app)
	}

	return m, nil
}
