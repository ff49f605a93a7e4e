package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/streamchat/client"
	"github.com/tailored-agentic-units/streamchat/session"
)

// command is one parsed input line.
type command struct {
	name string
	arg  string
}

// parseCommand splits "/name arg" lines. Anything else is a message.
func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	states := make(chan session.State, 256)

	c, err := client.New(cfg,
		client.WithStateListener(func(s session.State) {
			select {
			case states <- s:
			default:
				logger.Warn("renderer behind, state dropped")
			}
		}),
		client.WithConversationInit(func(id, title string) {
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("# %s", title))+" "+dimStyle.Render(id))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer c.Close()

	if err := c.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume: %w", err)
	}

	lines := make(chan string)
	go readLines(cmd.InOrStdin(), lines)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r := newRenderer(out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case s := <-states:
				r.render(s)
			}
		}
	})

	g.Go(func() error {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				quit, err := dispatchLine(ctx, c, out, line)
				if err != nil {
					return err
				}
				if quit {
					return nil
				}
			}
		}
	})

	return g.Wait()
}

// readLines feeds stdin lines to out until EOF. It is not tied to a context
// because a blocked terminal read cannot be interrupted.
func readLines(in io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

// dispatchLine runs one input line. User-facing failures are printed; only
// a closed client ends the session with an error.
func dispatchLine(ctx context.Context, c *client.Client, out io.Writer, line string) (quit bool, err error) {
	if cmd, ok := parseCommand(line); ok {
		switch cmd.name {
		case "quit", "exit":
			return true, nil
		case "new":
			err = c.NewConversation(ctx)
		case "open":
			if cmd.arg == "" {
				fmt.Fprintln(out, errorStyle.Render("usage: /open <conversation-id>"))
				return false, nil
			}
			err = c.Select(ctx, cmd.arg)
		case "cancel":
			err = c.Cancel(ctx)
		default:
			fmt.Fprintln(out, errorStyle.Render("unknown command /"+cmd.name))
			return false, nil
		}
	} else {
		err = c.Send(ctx, line)
	}

	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, client.ErrClosed):
		return true, err
	case errors.Is(err, client.ErrEmptyInput):
		return false, nil
	case errors.Is(err, client.ErrNotConnected):
		fmt.Fprintln(out, errorStyle.Render("not connected, reconnecting; send again when connected"))
	case errors.Is(err, client.ErrBusy):
		fmt.Fprintln(out, errorStyle.Render("the agent is still replying; /cancel to stop it"))
	default:
		fmt.Fprintln(out, errorStyle.Render(err.Error()))
	}
	return false, nil
}
