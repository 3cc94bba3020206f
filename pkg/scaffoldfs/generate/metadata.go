package generate

import (
	"bytes"
	"fmt"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
)

// renderMetadata produces the key/value content of an integrity metadata
// file. The actor and timestamp come from the caller already expanded; they
// are written verbatim, never computed here.
func renderMetadata(node *spec.DirectoryNode, opts Options) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "name = %s\n", node.Name)
	fmt.Fprintf(&buf, "level = %s\n", node.MetadataLevel)
	fmt.Fprintf(&buf, "created_by = %s\n", opts.Actor)
	fmt.Fprintf(&buf, "created_at = %s\n", opts.Timestamp)
	if node.Description != "" {
		fmt.Fprintf(&buf, "description = %s\n", node.Description)
	}
	return buf.Bytes()
}
