package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shophub/internal/notify"
	"shophub/internal/push"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Manage the notification feed",
}

var notifListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, freshest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		store, _, cleanup := buildStore()
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		store.Initialize(ctx, token)

		if store.Unreachable() {
			printUnreachable()
			return nil
		}

		items := store.Snapshot()
		if len(items) == 0 {
			fmt.Println("No notifications.")
			return nil
		}
		for _, n := range items {
			printNotification(n)
		}
		color.HiBlack("%d unread", store.UnreadCount())
		return nil
	},
}

var notifReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		store, _, cleanup := buildStore()
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		store.Initialize(ctx, token)
		store.MarkRead(ctx, args[0])

		if store.Unreachable() {
			printUnreachable()
			return nil
		}
		color.Green("Marked %s as read (%d unread left)", args[0], store.UnreadCount())
		return nil
	},
}

var notifReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		store, _, cleanup := buildStore()
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		store.Initialize(ctx, token)
		store.MarkAllRead(ctx)

		if store.Unreachable() {
			printUnreachable()
			return nil
		}
		color.Green("All notifications marked read")
		return nil
	},
}

var notifWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live notification feed (Ctrl-C to stop)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		feed := make(chan struct{}, 1)
		store, _, cleanup := buildStoreWithHooks(notify.Hooks{
			OnNotice: func(msg string) {
				color.Yellow("notice: %s", msg)
			},
			OnUnreachable: func() {
				printUnreachable()
			},
			OnChange: func() {
				select {
				case feed <- struct{}{}:
				default:
				}
			},
		})
		defer cleanup()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		store.Initialize(ctx, token)

		color.Cyan("Watching role channel %q (%d unread). Ctrl-C to stop.", role, store.UnreadCount())

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)

		var lastShown int
		for {
			select {
			case <-interrupt:
				store.Reset()
				fmt.Println("\nStopped watching.")
				return nil
			case <-feed:
				items := store.Snapshot()
				// show whatever is new at the top of the feed
				fresh := 0
				for _, n := range items {
					if n.Fresh() {
						fresh++
					}
				}
				for i := fresh - lastShown - 1; i >= 0; i-- {
					printNotification(items[i])
				}
				if fresh > lastShown {
					lastShown = fresh
				}
			}
		}
	},
}

// buildStore assembles the client stack for one command invocation.
func buildStore() (*notify.Store, *push.Client, func()) {
	return buildStoreWithHooks(notify.Hooks{})
}

func buildStoreWithHooks(hooks notify.Hooks) (*notify.Store, *push.Client, func()) {
	api := newAPIClient()
	channel := push.NewClient(wsURL, cfg.ReconnectAttempts, cfg.ReconnectBackoff, slog.Default())
	store := notify.NewStore(api, channel, role, hooks, slog.Default())
	return store, channel, func() { channel.Close() }
}

func printNotification(n notify.Notification) {
	marker := color.New(color.FgHiBlack)
	if !n.IsRead {
		marker = color.New(color.FgWhite, color.Bold)
	}

	kindColor := map[notify.Kind]*color.Color{
		notify.KindOrder:         color.New(color.FgCyan),
		notify.KindInventory:     color.New(color.FgYellow),
		notify.KindImportReceipt: color.New(color.FgGreen),
		notify.KindExportReceipt: color.New(color.FgMagenta),
		notify.KindOther:         color.New(color.FgWhite),
	}[n.Kind]

	read := " "
	if !n.IsRead {
		read = "*"
	}
	fmt.Printf("%s %s %s %s  %s\n",
		read,
		kindColor.Sprintf("%-15s", n.Kind),
		color.HiBlackString("%-9s", n.SourceEvent),
		marker.Sprint(n.Message),
		color.HiBlackString(relativeTime(n.OccurredAt)),
	)
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func printUnreachable() {
	color.Red("────────────────────────────────────────")
	color.Red(" Cannot reach the back-office API.")
	color.Red(" Check your connection and run the command again.")
	color.Red("────────────────────────────────────────")
}

func init() {
	notificationsCmd.AddCommand(notifListCmd)
	notificationsCmd.AddCommand(notifReadCmd)
	notificationsCmd.AddCommand(notifReadAllCmd)
	notificationsCmd.AddCommand(notifWatchCmd)
	rootCmd.AddCommand(notificationsCmd)
}
