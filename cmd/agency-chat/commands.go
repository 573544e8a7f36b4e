package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brizzai/agency-chat/internal/chat"
	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/session"
	"github.com/brizzai/agency-chat/internal/sessionview"
	"github.com/brizzai/agency-chat/internal/tui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in: run `agency-chat login` first")

func newLoginCmd() *cobra.Command {
	var credential string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, m *session.Manager) error {
				var err error
				if credential != "" {
					err = m.SignInWithCredential(ctx, credential)
				} else {
					spinner, _ := pterm.DefaultSpinner.Start("Waiting for Google sign-in in your browser...")
					err = m.SignInWithGoogle(ctx)
					if spinner != nil {
						_ = spinner.Stop()
					}
				}
				if err != nil {
					return describe(err)
				}

				if st, ok := m.State().(session.LoggedIn); ok {
					pterm.Success.Printfln("Signed in as %s", pterm.LightGreen(st.User.DisplayName()))
				} else {
					pterm.Success.Println("Signed in")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Exchange this Google ID token instead of opening the browser")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, m *session.Manager) error {
				m.SignOut(ctx)
				pterm.Success.Println("Signed out")
				return nil
			})
		},
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, m *session.Manager) error {
				user := m.CurrentUser(ctx)
				if user == nil {
					return errNotSignedIn
				}
				pterm.DefaultSection.Println(user.DisplayName())
				pterm.Printfln("Email: %s", user.Email)
				pterm.Printfln("ID:    %s", user.ID)
				return nil
			})
		},
	}
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the reply",
		Long: `Send one message to the assistant and print its reply. Start the message
with /web, /app, /ai, /budget or /human to pick a topic.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withSession(cmd.Context(), func(ctx context.Context, m *session.Manager) error {
				reply, err := m.SendMessage(ctx, text)
				if err != nil {
					return describe(err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
				return err
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the recent conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := chat.ParseFormat(format)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Chat.HistoryLimit
			}
			return withSession(cmd.Context(), func(ctx context.Context, m *session.Manager) error {
				if m.CurrentUser(ctx) == nil {
					return errNotSignedIn
				}
				return renderHistory(cmd.OutOrStdout(), m.ChatHistory(ctx, limit), f)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of messages to show (default from chat.history_limit)")
	cmd.Flags().StringVarP(&format, "format", "f", string(chat.FormatTable), "Output format: table, yaml or json")
	return cmd
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "chat",
		Short:       "Open the interactive chat",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationFileLogging: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, m *session.Manager) error {
				view := sessionview.New(m)
				defer view.Close()
				view.Activate(ctx)
				return tui.Run(ctx, view, cfg.Chat.HistoryLimit)
			})
		},
	}
}

func newMCPCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the chat as MCP tools",
		Long: `Serve send_message, chat_history and whoami to MCP clients, using the
stored session. The default stdio transport is meant to be launched by the
client; --mode http listens on mcp.host:mcp.port instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "" {
				cfg.MCP.Mode = config.MCPMode(mode)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return withMCPServer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Transport: stdio or http (default from mcp.mode)")
	return cmd
}

func newDevServerCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local chat backend for development",
		Long: `Run a local stand-in for the chat backend with canned replies and
in-memory history. Point the client at it with --api-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				cfg.DevServer.Port = port
			}
			pterm.Info.Printfln("Development backend on http://%s", cfg.DevServer.Addr())
			return withDevServer(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from devserver.port)")
	return cmd
}

// describe turns session errors into messages that say what to do next.
func describe(err error) error {
	var apiErr *session.APIError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return errNotSignedIn
	case errors.Is(err, session.ErrSessionInvalid):
		return errors.New("session expired: run `agency-chat login` again")
	case errors.Is(err, session.ErrProviderUnavailable):
		return fmt.Errorf("%w; set google.client_id or pass --credential", err)
	case errors.Is(err, session.ErrTransport):
		return fmt.Errorf("%w: is %s reachable?", err, cfg.API.BaseURL)
	case errors.As(err, &apiErr):
		return errors.New(apiErr.Message)
	default:
		return err
	}
}
