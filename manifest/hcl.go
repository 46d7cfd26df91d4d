package manifest

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// hclCodec stores the manifest as HCL:
//
//	project {
//	  name = "tool"
//	}
//
//	entrypoint "list-users" {
//	  target = "github.com/acme/tool/cmd.ListUsers"
//	}
//
// Rewrites go through hclwrite surgery, so comments and foreign blocks in an
// existing file survive an update.
type hclCodec struct{}

var manifestSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "project"},
		{Type: "entrypoint", LabelNames: []string{"name"}},
	},
}

func (hclCodec) Read(path string) (*Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, diags := hclparse.NewParser().ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}

	content, _, diags := file.Body.PartialContent(manifestSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, diags)
	}

	m := &Model{Scripts: make(map[string]string)}
	for _, block := range content.Blocks {
		switch block.Type {
		case "project":
			name, err := stringAttr(block.Body, "name")
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", path, err)
			}
			m.Project = name
		case "entrypoint":
			target, err := stringAttr(block.Body, "target")
			if err != nil {
				return nil, fmt.Errorf("manifest %s, entrypoint %q: %w", path, block.Labels[0], err)
			}
			m.Scripts[block.Labels[0]] = target
		}
	}
	return m, nil
}

func (hclCodec) Update(path string, m *Model) error {
	var file *hclwrite.File
	src, err := os.ReadFile(path)
	switch {
	case err == nil:
		var diags hcl.Diagnostics
		file, diags = hclwrite.ParseConfig(src, path, hcl.Pos{Line: 1, Column: 1})
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse manifest %s: %w", path, diags)
		}
	case os.IsNotExist(err):
		file = hclwrite.NewEmptyFile()
		if m.Project != "" {
			project := file.Body().AppendNewBlock("project", nil)
			project.Body().SetAttributeValue("name", cty.StringVal(m.Project))
		}
	default:
		return err
	}

	body := file.Body()
	for _, block := range body.Blocks() {
		if block.Type() == "entrypoint" {
			body.RemoveBlock(block)
		}
	}
	for _, name := range sortedNames(m.Scripts) {
		body.AppendNewline()
		block := body.AppendNewBlock("entrypoint", []string{name})
		block.Body().SetAttributeValue("target", cty.StringVal(m.Scripts[name]))
	}

	return os.WriteFile(path, hclwrite.Format(file.Bytes()), 0o644)
}

// stringAttr evaluates a required attribute as a constant string.
func stringAttr(body hcl.Body, name string) (string, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return "", diags
	}
	attr, ok := attrs[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", name)
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("attribute %q must be a string, got %s", name, val.Type().FriendlyName())
	}
	return val.AsString(), nil
}
