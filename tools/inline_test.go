package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline(t *testing.T) {
	input := `
I like %inline("tacos"), and
I also like %inline("queso").
Both are delicious.
`
	want := `
I like TACOS, and
I also like QUESO.
Both are delicious.
`

	find := func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	}

	got, err := Inline([]byte(input), find)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestLoadBookWithInlines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("Hello there."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book.yaml"), []byte(`
initial: a
states:
  a: {sounds: [hello]}
sounds:
  hello: {speech: '%inline("hello.txt")'}
`), 0644))

	b, err := LoadBookWithInlines(filepath.Join(dir, "book.yaml"))
	require.NoError(t, err)
	snd, have := b.Sound("hello")
	require.True(t, have)
	assert.Equal(t, "Hello there.", snd.Speech)

	_, err = LoadBookWithInlines(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
