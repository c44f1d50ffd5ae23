package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// consoleConfig is the document a deployment publishes for console clients.
type consoleConfig struct {
	Apps               []appEntry `json:"apps" yaml:"apps"`
	ShowAppTextInput   bool       `json:"showAppTextInput" yaml:"showAppTextInput"`
	ShowRealmTextInput *bool      `json:"showRealmTextInput" yaml:"showRealmTextInput"` // nil => true
	Realm              string     `json:"realm,omitempty" yaml:"realm,omitempty"`
}

// appEntry accepts either a bare name or {name, realm}.
type appEntry struct {
	Name  string `json:"name" yaml:"name"`
	Realm string `json:"realm,omitempty" yaml:"realm,omitempty"`
}

var errAppEntry = errors.New("app entry must be a name or an object")

func (e *appEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return errAppEntry
	case data[0] == '"':
		return json.Unmarshal(data, &e.Name)
	case data[0] == '{':
		type plain appEntry
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*e = appEntry(p)
		return nil
	default:
		return errAppEntry
	}
}

func (e *appEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Name = node.Value
		return nil
	case yaml.MappingNode:
		type plain appEntry
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*e = appEntry(p)
		return nil
	default:
		return fmt.Errorf("line %d: app entry must be a name or an object", node.Line)
	}
}
