package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mangatrack/mangatrack-backend/internal/dialogue"
	"github.com/mangatrack/mangatrack-backend/internal/models"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MANGACHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "mangachat",
		Short:         "Chat with the MangaTrack recommendation bot",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("server", "http://localhost:8080", "chatbot server base URL")
	root.PersistentFlags().String("token", "", "bearer token (see createtoken)")
	root.PersistentFlags().Duration("timeout", 45*time.Second, "per-request timeout")
	_ = v.BindPFlags(root.PersistentFlags())

	client := func() (*dialogue.HTTPClient, error) {
		token := v.GetString("token")
		if token == "" {
			return nil, fmt.Errorf("a bearer token is required: pass --token or set MANGACHAT_TOKEN")
		}
		return dialogue.NewHTTPClient(v.GetString("server"), token, v.GetDuration("timeout")), nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Start an interactive recommendation dialogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			return runDialogue(cmd.Context(), dialogue.NewMachine(c), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "usage",
		Short: "Show how many chatbot messages you have left today",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			summary, err := c.Usage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d messages used, %d remaining\n",
				summary.Date, summary.Count, summary.Limit, summary.Remaining)
			return nil
		},
	})

	return root
}

// runDialogue reads user lines until EOF or "quit". The mode buttons of the
// web client are the /saved and /questionnaire commands.
func runDialogue(ctx context.Context, machine *dialogue.Machine, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	printMessages(out, machine.Transcript())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		case "/saved", "/questionnaire":
			messages, err := machine.SelectMode(ctx, models.Mode(strings.TrimPrefix(strings.ToLower(line), "/")))
			if err != nil {
				fmt.Fprintf(out, "bot: %s\n", modeError(err))
				continue
			}
			printMessages(out, skipEcho(messages))
		default:
			printMessages(out, skipEcho(machine.Send(ctx, line)))
		}
	}
}

func modeError(err error) string {
	if errors.Is(err, dialogue.ErrModeLocked) {
		return "A mode is already selected. Type reset to start over."
	}
	return err.Error()
}

// skipEcho drops the echoed user line, which the terminal already shows
func skipEcho(messages []dialogue.Message) []dialogue.Message {
	if len(messages) > 0 && messages[0].Role == models.RoleUser {
		return messages[1:]
	}
	return messages
}

func printMessages(out io.Writer, messages []dialogue.Message) {
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			fmt.Fprintf(out, "you: %s\n", msg.Content)
			continue
		}

		fmt.Fprintf(out, "bot: %s\n", msg.Content)
		for i, rec := range msg.Recommendations {
			if rec.Reason != "" {
				fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, rec.Title, rec.Reason)
			} else {
				fmt.Fprintf(out, "  %d. %s\n", i+1, rec.Title)
			}
		}
		if msg.ShowModeButtons {
			fmt.Fprintln(out, "     [/saved] [/questionnaire]")
		}
	}
}
