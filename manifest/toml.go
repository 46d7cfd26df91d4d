package manifest

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// tomlCodec stores the manifest as TOML:
//
//	[project]
//	name = "tool"
//
//	[scripts]
//	list-users = "github.com/acme/tool/cmd.ListUsers"
//
// Rewrites decode the whole document into a generic tree and replace only
// the scripts table, so foreign tables survive an update.
type tomlCodec struct{}

func (tomlCodec) Read(path string) (*Model, error) {
	var doc struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Scripts map[string]string `toml:"scripts"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m := &Model{Project: doc.Project.Name, Scripts: doc.Scripts}
	if m.Scripts == nil {
		m.Scripts = make(map[string]string)
	}
	return m, nil
}

func (tomlCodec) Update(path string, m *Model) error {
	doc := make(map[string]any)
	if src, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(src, &doc); err != nil {
			return fmt.Errorf("failed to parse manifest %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if m.Project != "" {
		project, _ := doc["project"].(map[string]any)
		if project == nil {
			project = make(map[string]any)
		}
		if _, ok := project["name"]; !ok {
			project["name"] = m.Project
		}
		doc["project"] = project
	}
	scripts := make(map[string]any, len(m.Scripts))
	for name, target := range m.Scripts {
		scripts[name] = target
	}
	doc["scripts"] = scripts

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode manifest %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
