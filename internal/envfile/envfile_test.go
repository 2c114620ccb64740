package envfile

import (
	"strings"
	"testing"
)

func TestRenderGroupsAndOrder(t *testing.T) {
	out := Render([]Group{
		{Name: "database", Vars: map[string]string{"DB_USERNAME": "immich", "DB_PASSWORD": `p"w$d`}},
		{Name: "network", Vars: map[string]string{"PORT": "2283"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	want := []string{
		"# database",
		`DB_PASSWORD=p\"w\$d`,
		"DB_USERNAME=immich",
		"",
		"# network",
		"PORT=2283",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	groups := []Group{{Name: "g", Vars: map[string]string{"B": "2", "A": "1"}}}
	a := Render(groups)
	b := Render(groups)
	if a != b {
		t.Errorf("Render is not deterministic")
	}
}
