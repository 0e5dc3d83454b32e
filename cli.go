package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "witty",
		Short:         "Run AI commands on the text selected in any application",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "app",
			Short: "Start the tray application (default)",
			RunE:  func(*cobra.Command, []string) error { return runApp() },
		},
		newCaptureCmd(),
		newPasteCmd(),
		newRunCmd(),
		newCommandsCmd(),
	)
	return root
}

// cliContext is cancelled by Ctrl-C.
func cliContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newCaptureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Print the text selected in the focused application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, logger := loadRuntime()
			defer logger.Sync() //nolint:errcheck
			ctx, cancel := cliContext()
			defer cancel()

			text, err := NewAutomator(cfg.Automation, logger).GetSelectedText(ctx)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return ErrEmptySelection
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newPasteCmd() *cobra.Command {
	var below bool
	c := &cobra.Command{
		Use:   "paste <text>",
		Short: "Type text into the focused application through the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, logger := loadRuntime()
			defer logger.Sync() //nolint:errcheck
			ctx, cancel := cliContext()
			defer cancel()

			automator := NewAutomator(cfg.Automation, logger)
			if below {
				if err := automator.MoveCaretBelow(ctx); err != nil {
					logger.Warn("caret move failed, pasting at caret", zap.Error(err))
				}
			}
			return automator.PasteText(ctx, args[0])
		},
	}
	c.Flags().BoolVar(&below, "below", false, "move the caret to a new line below the selection first")
	return c
}

func newRunCmd() *cobra.Command {
	var (
		commandID string
		text      string
	)
	c := &cobra.Command{
		Use:   "run",
		Short: "Run one command on the current selection without the UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, logger := loadRuntime()
			defer logger.Sync() //nolint:errcheck
			ctx, cancel := cliContext()
			defer cancel()

			cfg = cfg.withEnv(os.Getenv)
			command, err := cfg.Command(commandID)
			if err != nil {
				return err
			}
			commander := NewCommander(
				NewAutomator(cfg.Automation, logger),
				headlessWindows{out: cmd.OutOrStdout()},
				desktopNotifier{},
				func() Config { return cfg },
				buildLLM,
				logger,
			)
			if text == "" {
				if text, err = commander.PrepareCommand(ctx); err != nil {
					return err
				}
			}
			result, err := commander.RunCommand(ctx, text, command)
			if err != nil {
				return err
			}
			if result.Response != "" && command.Action == ActionClipboardCopy {
				fmt.Fprintln(cmd.OutOrStdout(), result.Response)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&commandID, "command", "c", "", "id of the command to run (see `witty commands`)")
	c.Flags().StringVar(&text, "text", "", "use this text instead of the current selection")
	_ = c.MarkFlagRequired("command")
	return c
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the configured commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := NewConfigService(zap.NewNop()).load()
			if err != nil {
				return err
			}
			return printCommands(cmd.OutOrStdout(), cfg.Commands)
		},
	}
}

func printCommands(w io.Writer, commands []Command) error {
	if len(commands) == 0 {
		return errors.New("no commands configured")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tLABEL")
	for _, c := range commands {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Action, c.Label)
	}
	return tw.Flush()
}
