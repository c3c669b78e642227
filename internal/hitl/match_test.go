// ABOUTME: Table tests for tool-name glob matching against policy patterns.
// ABOUTME: Covers case folding, wildcard runs, literal dots, and empty pattern lists.

package hitl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		patterns []string
		want     bool
	}{
		{"exact match", "Bash", []string{"Bash"}, true},
		{"case insensitive", "bash", []string{"BASH"}, true},
		{"prefix wildcard", "Bash:kubectl apply", []string{"Bash:kubectl*"}, true},
		{"prefix wildcard no match", "Bash:docker", []string{"Bash:kubectl*"}, false},
		{"no patterns", "anything", []string{}, false},
		{"nil patterns", "x", nil, false},
		{"literal dot matches", "Tool.name", []string{"Tool.name"}, true},
		{"dot is not any-char", "ToolXname", []string{"Tool.name"}, false},
		{"wildcard both ends", "Bash:prod deploy now", []string{"*deploy*"}, true},
		{"middle wildcard", "Bash:kubectl delete pod", []string{"Bash:*delete*"}, true},
		{"star matches empty run", "Bash:", []string{"Bash:*"}, true},
		{"lone star matches everything", "anything at all", []string{"*"}, true},
		{"second pattern matches", "Write", []string{"Read", "Write"}, true},
		{"ordered segments required", "a-b", []string{"*b*a*"}, false},
		{"unanchored needs suffix", "deploying", []string{"*deploy"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.tool, tt.patterns))
		})
	}
}
