package spec

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
)

// Document is the top-level shape of a scaffold specification file.
type Document struct {
	Scaffold *rawNode          `yaml:"scaffold"`
	Vars     map[string]string `yaml:"vars,omitempty"`
}

type rawNode struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Integrity   bool       `yaml:"integrity,omitempty"`
	Level       string     `yaml:"level,omitempty"`
	Children    []*rawNode `yaml:"children,omitempty"`
}

// LoadFile reads, expands and validates a scaffold specification file.
// Values in vars override same-named entries from the document's own vars
// block.
func LoadFile(name string, vars map[string]string) (*DirectoryNode, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spec %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	return Load(f, vars)
}

// Load decodes a scaffold specification document and returns the validated
// tree. The returned tree is fully expanded: generation never sees a
// variable reference.
func Load(r io.Reader, vars map[string]string) (*DirectoryNode, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}
	if doc.Scaffold == nil {
		return nil, fmt.Errorf("spec has no scaffold block")
	}

	merged := make(map[string]string, len(doc.Vars)+len(vars))
	for k, v := range doc.Vars {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	root, err := buildNode(doc.Scaffold, merged)
	if err != nil {
		return nil, err
	}
	if err := validateTree(root); err != nil {
		return nil, err
	}
	return root, nil
}

func buildNode(raw *rawNode, vars map[string]string) (*DirectoryNode, error) {
	name, err := expand(raw.Name, vars)
	if err != nil {
		return nil, err
	}
	desc, err := expand(raw.Description, vars)
	if err != nil {
		return nil, err
	}
	level, ok := core.ParseMetadataLevel(raw.Level)
	if !ok {
		return nil, fmt.Errorf("node %q: unknown metadata level %q", name, raw.Level)
	}

	node := &DirectoryNode{
		Name:                 name,
		Description:          desc,
		RequiresIntegrityDir: raw.Integrity,
		MetadataLevel:        level,
	}
	for _, child := range raw.Children {
		built, err := buildNode(child, vars)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, built)
	}
	return node, nil
}

// expand substitutes ${var} references. Unknown variables are an error so a
// typo in a spec never leaks a literal "${user}" onto the filesystem.
func expand(s string, vars map[string]string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		missing = append(missing, key)
		return ""
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("undefined variable(s) %s in %q", strings.Join(missing, ", "), s)
	}
	return expanded, nil
}

func validateTree(root *DirectoryNode) error {
	return root.Walk(func(rel string, node *DirectoryNode) error {
		if err := validateName(node.Name); err != nil {
			return fmt.Errorf("node %q: %w", rel, err)
		}
		if node.MetadataLevel != core.LevelNone && !node.RequiresIntegrityDir {
			return fmt.Errorf("node %q: metadata level %s requires an integrity directory", rel, node.MetadataLevel)
		}
		seen := make(map[string]bool, len(node.Children))
		for _, child := range node.Children {
			if seen[child.Name] {
				return fmt.Errorf("node %q: duplicate child name %q", rel, child.Name)
			}
			seen[child.Name] = true
		}
		return nil
	})
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty directory name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid directory name %q", name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("directory name %q contains a path separator", name)
	case name == core.MetaDirName:
		return fmt.Errorf("directory name %q is reserved", name)
	}
	return nil
}
