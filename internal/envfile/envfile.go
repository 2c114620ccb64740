// Package envfile renders the `<service>.env` file: grouped KEY=VALUE
// lines with `# <group>` comment headers, values quoted
// through quadlet's env escape codec so a value containing `$`, `"`, or a
// newline survives round-tripping through the container engine's
// EnvironmentFile= directive.
package envfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aryonoco/divban/internal/quadlet"
)

// Group is one named block of KEY=VALUE pairs.
type Group struct {
	Name string
	Vars map[string]string
}

// Render produces the full file content: one `# <group>` header per group,
// in the given group order, each group's keys sorted so the output is
// byte-for-byte deterministic.
func Render(groups []Group) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		if g.Name != "" {
			fmt.Fprintf(&b, "# %s\n", g.Name)
		}
		keys := make([]string, 0, len(g.Vars))
		for k := range g.Vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s\n", k, quadlet.EnvCodec.Escape(g.Vars[k]))
		}
	}
	return b.String()
}
