package generate

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/gammazero/toposort"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
)

// Step is one planned mutation of the scaffold walk: a directory, an
// integrity directory, or a metadata file. Paths are slash-separated and
// relative to the generation base.
type Step struct {
	ID         string
	Kind       core.OperationKind
	Path       string
	Mode       fs.FileMode
	Content    []byte
	Restricted bool
	DependsOn  []string
}

// Plan is the resolved, ordered list of steps for one generation run.
type Plan struct {
	Steps []*Step
}

// BuildPlan walks the specification tree depth-first in declaration order
// and emits the step sequence with explicit dependency edges: every step
// depends on its parent directory's step and on the step emitted before it.
// The ordering edges make the dependency order total, so topological
// resolution reproduces declaration order exactly — which is what fixes
// creation order, and therefore rollback order.
func BuildPlan(root *spec.DirectoryNode, opts Options) (*Plan, error) {
	plan := &Plan{}
	parentSteps := map[string]string{}
	prevID := ""

	err := root.Walk(func(rel string, node *spec.DirectoryNode) error {
		deps := orderedDeps(parentSteps[path.Dir(rel)], prevID)

		dirStep := &Step{
			ID:        "mkdir:" + rel,
			Kind:      core.OpMakeDir,
			Path:      rel,
			Mode:      core.DefaultDirMode,
			DependsOn: deps,
		}
		plan.Steps = append(plan.Steps, dirStep)
		parentSteps[rel] = dirStep.ID
		prevID = dirStep.ID

		if !node.RequiresIntegrityDir {
			return nil
		}

		metaPath := path.Join(rel, core.MetaDirName)
		metaStep := &Step{
			ID:         "mkdir:" + metaPath,
			Kind:       core.OpMakeDir,
			Path:       metaPath,
			Mode:       core.RestrictedDirMode,
			Restricted: true,
			DependsOn:  orderedDeps(dirStep.ID, prevID),
		}
		plan.Steps = append(plan.Steps, metaStep)
		prevID = metaStep.ID

		if node.MetadataLevel == core.LevelNone {
			return nil
		}

		filePath := path.Join(metaPath, node.Name+".meta")
		fileStep := &Step{
			ID:         "write:" + filePath,
			Kind:       core.OpCreateFile,
			Path:       filePath,
			Mode:       core.RestrictedFileMode,
			Content:    renderMetadata(node, opts),
			Restricted: true,
			DependsOn:  orderedDeps(metaStep.ID, prevID),
		}
		plan.Steps = append(plan.Steps, fileStep)
		prevID = fileStep.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := plan.resolve(); err != nil {
		return nil, err
	}
	return plan, nil
}

func orderedDeps(parentID, prevID string) []string {
	var deps []string
	if parentID != "" {
		deps = append(deps, parentID)
	}
	if prevID != "" && prevID != parentID {
		deps = append(deps, prevID)
	}
	return deps
}

// resolve performs dependency resolution using topological sorting and
// rebuilds the step slice in the resolved order.
func (p *Plan) resolve() error {
	if len(p.Steps) == 0 {
		return nil
	}

	byID := make(map[string]*Step, len(p.Steps))
	for _, step := range p.Steps {
		if _, dup := byID[step.ID]; dup {
			return fmt.Errorf("duplicate plan step %s", step.ID)
		}
		byID[step.ID] = step
	}

	edges := make([]toposort.Edge, 0, len(p.Steps))
	for _, step := range p.Steps {
		for _, depID := range step.DependsOn {
			if _, ok := byID[depID]; !ok {
				return fmt.Errorf("step %s depends on unknown step %s", step.ID, depID)
			}
			// Edge element 0 must come before element 1.
			edges = append(edges, toposort.Edge{depID, step.ID})
		}
	}

	sortedIDs, err := toposort.Toposort(edges)
	if err != nil {
		return fmt.Errorf("circular step dependency: %w", err)
	}

	resolved := make([]*Step, 0, len(p.Steps))
	added := make(map[string]bool, len(p.Steps))
	for _, idInterface := range sortedIDs {
		id, ok := idInterface.(string)
		if !ok {
			return fmt.Errorf("unexpected type in topological sort result: %T", idInterface)
		}
		if step, exists := byID[id]; exists && !added[id] {
			resolved = append(resolved, step)
			added[id] = true
		}
	}
	// Steps outside the dependency graph keep their emission order.
	for _, step := range p.Steps {
		if !added[step.ID] {
			resolved = append(resolved, step)
			added[step.ID] = true
		}
	}

	p.Steps = resolved
	return nil
}
