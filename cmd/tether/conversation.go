package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/tether"
	"github.com/fwojciec/tether/claudecode"
	"github.com/spf13/cobra"
)

// connFlags are the per-run overrides of the connection options.
type connFlags struct {
	resume         string
	model          string
	permissionMode string
	cwd            string
	cliPath        string
	maxTurns       int
}

func (f *connFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.resume, "resume", "r", "", "resume the stored session with this ID")
	cmd.Flags().StringVar(&f.model, "model", "", "model (overrides config)")
	cmd.Flags().StringVar(&f.permissionMode, "permission-mode", "", "default, acceptEdits, plan or bypassPermissions")
	cmd.Flags().StringVar(&f.cwd, "cwd", "", "working directory for the agent")
	cmd.Flags().StringVar(&f.cliPath, "cli-path", "", "path to the claude executable")
	cmd.Flags().IntVar(&f.maxTurns, "max-turns", 0, "maximum agent turns per response (0 = agent default)")
}

func (a *app) newClient(f connFlags) *tether.Client {
	opts := a.cfg.Options()
	if f.model != "" {
		opts.Model = f.model
	}
	if f.permissionMode != "" {
		opts.PermissionMode = tether.PermissionMode(f.permissionMode)
	}
	if f.cwd != "" {
		opts.Cwd = f.cwd
	}
	if f.cliPath != "" {
		opts.CLIPath = f.cliPath
	}
	if f.maxTurns > 0 {
		opts.MaxTurns = f.maxTurns
	}
	ropts := []tether.ReconcilerOption{tether.WithLogger(a.logger)}
	if opts.Cwd != "" {
		cwd := opts.Cwd
		ropts = append(ropts, tether.WithWorkingDirectory(func() (string, error) { return cwd, nil }))
	}
	transport := claudecode.New(claudecode.WithLogger(a.logger))
	return tether.NewClient(transport, a.store, opts, ropts...)
}

// converse connects c, runs turns and disconnects. The final save runs
// even after an interrupt so the session stays resumable.
func (a *app) converse(ctx context.Context, c *tether.Client, f connFlags, prompt string, turns func() error) error {
	if err := c.StartOrResume(ctx, f.resume); err != nil {
		return err
	}
	if err := c.Connect(ctx, prompt); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	err := turns()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	derr := c.Disconnect(context.WithoutCancel(ctx))
	if id := c.CurrentSessionID(); id != "" {
		fmt.Fprintf(a.stderr, "session: %s\n", id)
	}
	return errors.Join(err, derr)
}

// respond prints one response as it arrives.
func respond(ctx context.Context, c *tether.Client, p *printer) error {
	s, err := c.ReceiveResponse(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	for {
		msg, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		p.print(msg)
	}
}

func askCmd(a *app) *cobra.Command {
	var f connFlags
	cmd := &cobra.Command{
		Use:   "ask PROMPT...",
		Short: "Send one prompt and print the response",
		Long:  `Sends one prompt, prints the response and the session ID. Use "-" to read the prompt from stdin.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if prompt == "-" {
				data, err := io.ReadAll(a.stdin)
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = strings.TrimSpace(string(data))
			}
			if prompt == "" {
				return errors.New("empty prompt")
			}
			ctx := cmd.Context()
			c := a.newClient(f)
			p := newPrinter(a.stdout)
			return a.converse(ctx, c, f, prompt, func() error {
				return respond(ctx, c, p)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func chatCmd(a *app) *cobra.Command {
	var f connFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a conversation, one prompt per line",
		Long:  `Reads prompts from stdin, one per line, and prints each response. "/exit" ends the conversation and "/id" prints the current session ID.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := a.newClient(f)
			p := newPrinter(a.stdout)
			return a.converse(ctx, c, f, "", func() error {
				scanner := bufio.NewScanner(a.stdin)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					switch line {
					case "":
						continue
					case "/exit", "/quit":
						return nil
					case "/id":
						fmt.Fprintln(a.stdout, c.CurrentSessionID())
						continue
					}
					if err := c.Query(ctx, line, ""); err != nil {
						return fmt.Errorf("query: %w", err)
					}
					if err := respond(ctx, c, p); err != nil {
						return err
					}
				}
				return scanner.Err()
			})
		},
	}
	f.register(cmd)
	return cmd
}
