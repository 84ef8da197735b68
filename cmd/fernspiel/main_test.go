package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/fernspiel/sio"
	"github.com/Comcast/fernspiel/util/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = testutil.FixturePath()

func TestRequestLine(t *testing.T) {
	_, ok := requestLine("  # comment")
	assert.False(t, ok)

	req, ok := requestLine("p1")
	require.True(t, ok)
	assert.JSONEq(t, `{"invoke":"dial","with":"p1"}`, string(req))

	req, ok = requestLine("reset")
	require.True(t, ok)
	r, err := sio.ParseRequest(req)
	require.NoError(t, err)
	assert.Equal(t, sio.InvokeReset, r.Invoke)

	req, ok = requestLine(`{"invoke":"shutdown"}`)
	require.True(t, ok)
	assert.Equal(t, `{"invoke":"shutdown"}`, string(req))
}

func TestWsURL(t *testing.T) {
	for in, want := range map[string]string{
		"localhost:8080":           "ws://localhost:8080/ws",
		"http://example.com":       "ws://example.com/ws",
		"https://example.com/":     "wss://example.com/ws",
		"ws://example.com:1/other": "ws://example.com:1/other",
	} {
		got, err := wsURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestCtl(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := testutil.LoadFixture(t)

	e := sio.NewEngine(b, sio.NewEvents(8), nil, nil)
	r := sio.NewRemote(e)
	go e.Run(ctx)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, ctl(ctx, srv.URL, strings.NewReader("p\nnot json {\n"), &out, 200*time.Millisecond, false))
	assert.Contains(t, out.String(), `"posted":1`)

	require.Eventually(t, func() bool {
		return e.Current() == "introduce"
	}, time.Second, 10*time.Millisecond)
}

func TestValidateCmd(t *testing.T) {
	cmd := newValidateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{fixture})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "ok (6 states, initial ring)")

	cmd = newValidateCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"missing.yaml"})
	assert.Error(t, cmd.Execute())
}

func TestAnalyzeCmd(t *testing.T) {
	cmd := newAnalyzeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{fixture})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"SelfLoops": [`)
}

func TestMermaidCmd(t *testing.T) {
	cmd := newMermaidCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{fixture, "--to", "talk", "--expand-any"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "graph TB")
	assert.NotContains(t, out.String(), "any{{")
}

func TestExpectCmd(t *testing.T) {
	dir := t.TempDir()
	session := dir + "/session.yaml"
	require.NoError(t, os.WriteFile(session, []byte(`
steps:
  - input: p
    expect: introduce
  - input: "1"
    expect: quiet
`), 0644))

	cmd := newExpectCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{session, "--book", fixture})
	assert.Error(t, cmd.Execute())
	assert.Contains(t, out.String(), "want quiet, got talk")
}
