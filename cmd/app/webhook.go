package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram bot webhook",
	}

	set := &cobra.Command{
		Use:   "set [url]",
		Short: "Register the bot webhook (defaults to {bot.webhook_url}/webhook/telegram)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			url := a.cfg.TelegramWebhookURL()
			if len(args) == 1 {
				url = args[0]
			}
			if url == "" {
				return errors.New("no webhook url: pass one or set bot.webhook_url")
			}
			t, _, err := botTransport(a, false)
			if err != nil {
				return err
			}
			if err := t.SetWebhook(cmd.Context(), url); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook set to %s\n", url)
			return nil
		},
	}

	info := &cobra.Command{
		Use:   "info",
		Short: "Show the current webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			t, _, err := botTransport(a, false)
			if err != nil {
				return err
			}
			wi, err := t.GetWebhookInfo(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:              %s\n", wi.URL)
			fmt.Fprintf(out, "pending updates:  %d\n", wi.PendingUpdateCount)
			fmt.Fprintf(out, "max connections:  %d\n", wi.MaxConnections)
			if wi.LastErrorMessage != "" {
				fmt.Fprintf(out, "last error:       %s (%s)\n", wi.LastErrorMessage, wi.LastErrorDate.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	var dropPending bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			t, _, err := botTransport(a, false)
			if err != nil {
				return err
			}
			if err := t.DeleteWebhook(cmd.Context(), dropPending); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
			return nil
		},
	}
	del.Flags().BoolVar(&dropPending, "drop-pending", false, "discard updates queued on the bot platform")

	cmd.AddCommand(set, info, del)
	return cmd
}
