// Package chat provides the chat command for trying the course assistant
// from a shell.
package chat

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnforge/trainingportal/internal/chat"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/httpclient"
	"github.com/learnforge/trainingportal/internal/repository"
	"github.com/learnforge/trainingportal/internal/store/backend"
)

// Command creates and returns the chat command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Classify or answer a chat message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("please specify a subcommand: classify, ask")
		},
	}

	classifyCmd := &cobra.Command{
		Use:   "classify [message]",
		Short: "Print the intent of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := strings.Join(args, " ")
			intent := chat.Classify(msg)
			fmt.Fprintf(cmd.OutOrStdout(), "intent: %s\ngoal: %s\ngreeting: %v\n",
				intent, chat.GoalLabel(intent), chat.IsGreeting(msg))
			return nil
		},
	}

	var sessionID string
	askCmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a message to the assistant using the configured provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newService(settings)
			if err != nil {
				return err
			}
			defer closeFn()

			resp := svc.Handle(cmd.Context(), chat.Request{Message: strings.Join(args, " "), SessionID: sessionID}, "cli")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s] %s\n", resp.Intent, resp.Reply)
			for _, s := range resp.Suggestions {
				fmt.Fprintf(out, "  - %s\n", s)
			}
			if !resp.Success {
				return fmt.Errorf("chat failed: %s", resp.Error)
			}
			return nil
		},
	}
	askCmd.Flags().StringVar(&sessionID, "session", "", "Session id to continue")

	cmd.AddCommand(classifyCmd, askCmd)
	return cmd
}

// newService builds a chat service without lead recording. The provider is
// left out when no API key is configured.
func newService(settings *conf.Settings) (*chat.Service, func(), error) {
	catalog, err := chat.LoadCatalog(settings.Chat.CatalogPath)
	if err != nil {
		return nil, func() {}, err
	}

	opts := []chat.Option{
		chat.WithContact(chat.Contact{Email: settings.Chat.ContactEmail, Phone: settings.Chat.ContactPhone}),
		chat.WithHistoryLimit(settings.Chat.HistoryLimit),
	}

	hc := httpclient.New(&httpclient.Config{Timeout: settings.Chat.Timeout})
	closeFn := hc.Close
	if client, err := chat.NewClient(&settings.Chat, hc, nil); err == nil {
		opts = append(opts, chat.WithProvider(client))
	}

	if settings.Chat.IncludeLiveCourses {
		st, closeStore, err := backend.Open(&settings.Storage, nil)
		if err != nil {
			return nil, closeFn, err
		}
		prev := closeFn
		closeFn = func() { prev(); _ = closeStore() }
		opts = append(opts, chat.WithCourseSource(repository.NewCourseRepository(st)))
	}

	return chat.NewService(catalog, opts...), closeFn, nil
}
