package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/tools"

	"github.com/spf13/cobra"
)

func loadBook(filename string) (*core.Book, error) {
	return tools.LoadBookWithInlines(filename)
}

// output returns the command's output if filename is empty.
func output(cmd *cobra.Command, filename string) (io.WriteCloser, error) {
	if filename == "" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(filename)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate book...",
		Short: "Check phonebooks.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed bool
			for _, filename := range args {
				b, err := loadBook(filename)
				if err != nil {
					failed = true
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", filename, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d states, initial %s)\n",
					filename, len(b.States()), b.InitialState().Id)
			}
			if failed {
				return fmt.Errorf("invalid phonebook")
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze book",
		Short: "Summarize the structure of a phonebook as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBook(args[0])
			if err != nil {
				return err
			}
			a, err := tools.Analyze(b)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJS(a))
			return nil
		},
	}
}

func newDotCmd() *cobra.Command {
	var (
		out      string
		from, to string
		png      bool
	)
	cmd := &cobra.Command{
		Use:   "dot book",
		Short: "Render a phonebook with Graphviz.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBook(args[0])
			if err != nil {
				return err
			}
			if png {
				if out == "" {
					out = "book"
				}
				filename, err := tools.PNG(b, out, from, to)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), filename)
				return nil
			}
			w, err := output(cmd, out)
			if err != nil {
				return err
			}
			defer w.Close()
			return tools.Dot(b, w, from, to)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (basename with --png)")
	cmd.Flags().StringVar(&from, "from", "", "highlight this state as the previous one")
	cmd.Flags().StringVar(&to, "to", "", "highlight this state as the current one")
	cmd.Flags().BoolVar(&png, "png", false, "run dot to make a PNG")
	return cmd
}

func newMermaidCmd() *cobra.Command {
	var (
		out  string
		to   string
		opts tools.MermaidOpts
	)
	cmd := &cobra.Command{
		Use:   "mermaid book",
		Short: "Render a phonebook as a Mermaid graph.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBook(args[0])
			if err != nil {
				return err
			}
			w, err := output(cmd, out)
			if err != nil {
				return err
			}
			defer w.Close()
			return tools.Mermaid(b, w, &opts, "", to)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	cmd.Flags().StringVar(&to, "to", "", "highlight this state")
	cmd.Flags().BoolVar(&opts.ShowLabels, "labels", true, "label edges")
	cmd.Flags().StringVar(&opts.SoundFill, "sound-fill", "#bcf2db", "fill color for states with sounds")
	cmd.Flags().StringVar(&opts.SoundClass, "sound-class", "", "CSS class for states with sounds")
	cmd.Flags().BoolVar(&opts.ExpandUniversal, "expand-any", false, "draw universal rules from every state")
	return cmd
}

func newHTMLCmd() *cobra.Command {
	var (
		out   string
		title string
		css   []string
	)
	cmd := &cobra.Command{
		Use:   "html book",
		Short: "Render a phonebook as an HTML page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBook(args[0])
			if err != nil {
				return err
			}
			w, err := output(cmd, out)
			if err != nil {
				return err
			}
			defer w.Close()
			return tools.RenderBookPage(b, w, title, css)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	cmd.Flags().StringVar(&title, "title", "", "page title")
	cmd.Flags().StringSliceVar(&css, "css", nil, "stylesheet URLs")
	return cmd
}

func newExpectCmd() *cobra.Command {
	var book string
	cmd := &cobra.Command{
		Use:   "expect session...",
		Short: "Check sessions of input and expected states against a phonebook.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b *core.Book
			if book != "" {
				var err error
				if b, err = loadBook(book); err != nil {
					return err
				}
			}
			failures := 0
			for _, filename := range args {
				fs, err := tools.RunSessionFile(filename, b)
				if err != nil {
					return fmt.Errorf("%s: %w", filename, err)
				}
				for _, f := range fs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", filename, f)
				}
				if len(fs) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", filename)
				}
				failures += len(fs)
			}
			if 0 < failures {
				return fmt.Errorf("%d failures", failures)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&book, "book", "b", "", "phonebook (overrides the sessions' books)")
	return cmd
}
