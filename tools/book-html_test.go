package tools

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBookPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderBookPage(fixture(t), &buf, "", []string{"book.css"}))

	out := buf.String()
	assert.Contains(t, out, "<title>phonebook</title>")
	assert.Contains(t, out, `<link href="book.css" rel="stylesheet">`)
	assert.Contains(t, out, `<tr class="state initial"><td><span id="ring" class="stateId">ring</span>`)
	assert.Contains(t, out, `<tr class="state terminal"><td><span id="pause"`)
	assert.Contains(t, out, "<em>again</em>")
	assert.Contains(t, out, "<strong>1</strong>")
	assert.Contains(t, out, `<div class="ring">ring 0.5</div>`)
	assert.Contains(t, out, `<tr class="state any">`)
	assert.Contains(t, out, "loop plays <code>hum.wav</code> at 0.2")
	assert.Contains(t, out, "says <q>Let us talk.</q> from 250ms")
}
