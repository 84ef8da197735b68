package tools

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMermaid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Mermaid(fixture(t), &buf, nil, "", "talk"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "graph TB\n"))
	// States are numbered in id order.
	assert.Contains(t, out, `n1(["goodbye"])`)
	assert.Contains(t, out, `n2("introduce")`)
	assert.Contains(t, out, "style n2 fill:#bcf2db")
	assert.Contains(t, out, "style n6 stroke:red,stroke-width:3px")
	assert.Contains(t, out, `n2 -.->|"after 5s"| n3`)
	assert.Contains(t, out, `any -->|"pick_up"| n2`)
}

func TestMermaidExpandUniversal(t *testing.T) {
	var buf bytes.Buffer
	opts := &MermaidOpts{ExpandUniversal: true, SoundClass: "sounding"}
	require.NoError(t, Mermaid(fixture(t), &buf, opts, "", ""))

	out := buf.String()
	assert.NotContains(t, out, "any{{")
	assert.Contains(t, out, "class n2 sounding")
	// Every state gets the universal hang_up edge to pause.
	assert.Equal(t, 6, strings.Count(out, "--> n3"))
}
