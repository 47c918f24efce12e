package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dov85/Apartment/internal/mailer"
)

var (
	remindDate  string
	remindPrint bool
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send the digest of due reminders",
	Long: `Collect every listing whose reminder is due today or earlier and send one
digest. The digest is mailed when SMTP is configured and printed otherwise.

Examples:
  flatctl remind
  flatctl remind --date 2026-03-01 --print`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()

		day := time.Now()
		if remindDate != "" {
			d, err := time.Parse(time.DateOnly, remindDate)
			if err != nil {
				return p.fail(fmt.Errorf("invalid --date %q: %w", remindDate, err))
			}
			day = d
		}

		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		due, err := client.listings.DueReminders(ctx, day)
		if err != nil {
			return p.fail(err)
		}

		if jsonOutput {
			return p.done(map[string]any{"date": day.Format(time.DateOnly), "due": due}, nil)
		}

		var sender mailer.Sender = mailer.WriterSender{W: cmd.OutOrStdout()}
		mailed := !remindPrint && cfg.SMTP.Configured()
		if mailed {
			if sender, err = mailer.NewSMTPSender(cfg.SMTP, client.log); err != nil {
				return p.fail(err)
			}
		}

		sent, err := mailer.SendReminderDigest(ctx, sender, day, due)
		if err != nil {
			return p.fail(err)
		}
		if !sent {
			fmt.Fprintln(cmd.OutOrStdout(), muted.Render("No reminders due."))
			return nil
		}
		if mailed {
			return p.done(nil, func(w io.Writer) {
				fmt.Fprintln(w, successLine("Mailed %d reminder(s) to %s", len(due), cfg.SMTP.To))
			})
		}
		return nil
	},
}

func init() {
	remindCmd.Flags().StringVar(&remindDate, "date", "", "Day to check (YYYY-MM-DD, default today)")
	remindCmd.Flags().BoolVar(&remindPrint, "print", false, "Print the digest even when SMTP is configured")
	rootCmd.AddCommand(remindCmd)
}
