package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Comcast/fernspiel/sio"
	"github.com/Comcast/fernspiel/util/logger"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func prettyJS(x interface{}) string {
	js, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}

func compactJS(x interface{}) string {
	js, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}

// requestLine turns a line of input into a request for the remote.
//
// A line that looks like JSON is sent as is.  "reset" and "shutdown"
// are those requests.  Anything else is a dial string.
func requestLine(line string) ([]byte, bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "" || strings.HasPrefix(line, "#"):
		return nil, false
	case strings.HasPrefix(line, "{"):
		return []byte(line), true
	case line == sio.InvokeReset || line == sio.InvokeShutdown:
		return []byte(compactJS(&sio.Request{Invoke: line})), true
	}
	return []byte(compactJS(&sio.Request{Invoke: sio.InvokeDial, With: line})), true
}

// wsURL accepts "host:port", "http://host:port" or a full websocket
// URL.
func wsURL(s string) (string, error) {
	if !strings.Contains(s, "://") {
		s = "ws://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// ctl sends the requests from in and writes what comes back to out
// until in is exhausted and then wait has passed (or forever if
// follow).
func ctl(ctx context.Context, addr string, in io.Reader, out io.Writer, wait time.Duration, follow bool) error {
	ctx = logger.WithName(ctx, "ctl")

	u, err := wsURL(addr)
	if err != nil {
		return err
	}

	c, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.DebugKV(ctx, "connected", "url", u)

	readerDone := make(chan error, 1)
	go func() {
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				readerDone <- err
				return
			}
			fmt.Fprintf(out, "%s\n", message)
		}
	}()

	lines := bufio.NewScanner(in)
	for lines.Scan() {
		req, ok := requestLine(lines.Text())
		if !ok {
			continue
		}
		if err = c.WriteMessage(websocket.TextMessage, req); err != nil {
			return err
		}
	}
	if err = lines.Err(); err != nil {
		return err
	}

	var timer <-chan time.Time
	if !follow {
		timer = time.After(wait)
	}

	select {
	case <-ctx.Done():
	case <-timer:
	case err = <-readerDone:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			err = nil
		}
		return err
	}

	return c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func newCtlCmd() *cobra.Command {
	var (
		addr   string
		wait   time.Duration
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "ctl [request...]",
		Short: "Remote-control a running fernspiel over its websocket.",
		Long: `Sends each argument (or, without arguments, each line of stdin) to the
remote control and prints what comes back: acknowledgements and the
firehose of transitions and commands.

A request is JSON ({"invoke":"run","with":{...}}), "reset", "shutdown"
or a dial string such as "p1".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var in io.Reader = os.Stdin
			if 0 < len(args) {
				in = strings.NewReader(strings.Join(args, "\n"))
			}
			return ctl(ctx, addr, in, cmd.OutOrStdout(), wait, follow)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:8080", "remote control address")
	cmd.Flags().DurationVarP(&wait, "wait", "w", time.Second, "how long to listen after the last request")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep listening")
	return cmd
}
