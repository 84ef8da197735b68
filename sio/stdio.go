/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"
)

// Stdio is a console producer.  Each line of input is a dial string
// ("p12h"), a control word or a list of extension symbols.
//
//	# comment
//	p 1 1 h      pick up, dial 1 twice, hang up
//	:rering      extension symbol "rering"
//	reset        start over
//	quit         shut down
//
// Stdio is also an Observer and an Actuator that writes transitions
// and commands to Out.
type Stdio struct {
	// In is read by Run.
	In io.Reader

	// Out receives transitions and commands.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "enter", "cmd").
	Tags bool

	// PrintCommands writes each Command to Out.
	PrintCommands bool

	// HaltOnEOF posts a Shutdown at the end of input.
	HaltOnEOF bool

	// InputEOF will be closed at the end of input.
	InputEOF chan bool

	sync.Mutex
}

// NewStdio makes a Stdio for os.Stdin and os.Stdout.
func NewStdio(haltOnEOF bool) *Stdio {
	return &Stdio{
		In:        os.Stdin,
		Out:       os.Stdout,
		Tags:      true,
		HaltOnEOF: haltOnEOF,
		InputEOF:  make(chan bool),
	}
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	s.Lock()
	defer s.Unlock()

	if s.Tags {
		format = fmt.Sprintf("% 6s", tag) + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}
	fmt.Fprintf(s.Out, format, args...)
}

// ParseLine turns a line of console input into events.
//
// Blank lines and comments give no events.
func ParseLine(line string) []core.Event {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	switch strings.ToLower(line) {
	case "reset":
		return []core.Event{core.Reset{}}
	case "quit", "exit", "shutdown":
		return []core.Event{core.Shutdown{}}
	}

	var acc []core.Event
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, ":") && 1 < len(field) {
			acc = append(acc, core.SymbolEvent{Symbol: core.Extension(field[1:])})
			continue
		}
		acc = append(acc, core.Symbols(core.ParseDialString(field)...)...)
	}
	return acc
}

// Run reads lines from In and posts their events until the end of
// input or the context is done.
func (s *Stdio) Run(ctx context.Context, events *Events) error {
	ctx = logger.WithName(ctx, "stdio")

	defer func() {
		if s.InputEOF != nil {
			close(s.InputEOF)
		}
	}()

	lines := bufio.NewScanner(s.In)
	for lines.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := lines.Text()
		if s.EchoInput {
			s.printf("input", "%s\n", line)
		}
		if s.ShellExpand {
			expanded, err := expandShell(ctx, line)
			if err != nil {
				logger.WarnKV(ctx, "shell expand", "line", line, "error", err)
				continue
			}
			line = expanded
		}
		for _, ev := range ParseLine(line) {
			if err := events.Post(ctx, ev); err != nil {
				return err
			}
		}
	}
	if err := lines.Err(); err != nil {
		return err
	}

	logger.DebugKV(ctx, "end of input", "halt", s.HaltOnEOF)

	if s.HaltOnEOF {
		if err := events.Post(ctx, core.Shutdown{}); err != nil && err != ErrClosed {
			return err
		}
	}

	return nil
}

// Observe writes the transition.
func (s *Stdio) Observe(ctx context.Context, t *Transition) {
	from := t.From
	if from == "" {
		from = "-"
	}
	if t.Event == "" {
		s.printf("enter", "%s -> %s (%s)\n", from, t.To, t.Origin)
		return
	}
	s.printf("enter", "%s -> %s (%s %s)\n", from, t.To, t.Origin, t.Event)
}

// Actuate writes the command if PrintCommands.
func (s *Stdio) Actuate(ctx context.Context, c *Command) error {
	if !s.PrintCommands {
		return nil
	}
	js, err := json.Marshal(c)
	if err != nil {
		return err
	}
	s.printf("cmd", "%s\n", js)
	return nil
}

var shellPattern = regexp.MustCompile(`<<(.*?)>>`)

// expandShell replaces each '<<cmd>>' with the trimmed output of
// "sh -c cmd".
func expandShell(ctx context.Context, line string) (string, error) {
	var failed error
	expanded := shellPattern.ReplaceAllStringFunc(line, func(m string) string {
		if failed != nil {
			return ""
		}
		cmd := m[2 : len(m)-2]
		out, err := exec.CommandContext(ctx, "sh", "-c", cmd).Output()
		if err != nil {
			failed = fmt.Errorf("shell %q: %w", cmd, err)
			return ""
		}
		return strings.TrimSpace(string(out))
	})
	return expanded, failed
}
