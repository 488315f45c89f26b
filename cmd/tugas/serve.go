package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notetugas/tugas/internal/api"
	"github.com/notetugas/tugas/internal/assistant"
	"github.com/notetugas/tugas/internal/bot"
	"github.com/notetugas/tugas/internal/config"
	"github.com/notetugas/tugas/internal/notifier"
	"github.com/notetugas/tugas/internal/realtime"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "services",
	Short:   "Run the API, realtime updates, reminders and the Telegram bot",
	Long: `Start every long-running component in one process:

  - HTTP API and web socket (ws://<addr>/ws) pushing the full note list
    after every refresh
  - periodic sync from Firestore (sync_interval, off when 0)
  - deadline reminders, checked every notify_interval for notes due
    within 24 hours
  - the Telegram bot, when telegram_token is set

Example usage:
  tugas serve                     # listen on listen_addr (default :5000)
  tugas serve --addr :8080
  tugas serve --offline --no-bot  # try it out without Firebase`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		noBot, _ := cmd.Flags().GetBool("no-bot")
		noNotify, _ := cmd.Flags().GetBool("no-notify")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.close()
		logger := a.logger("serve")

		if addr == "" {
			addr = a.settings.ListenAddr
		}

		hub := realtime.NewHub(&realtime.Config{
			Snapshot: a.coord.Notes,
			Logger:   a.logger("realtime"),
		})
		hub.Start()
		defer hub.Stop()
		a.coord.Subscribe(hub)

		if a.ownerID != 0 {
			if _, err := a.coord.Sync(ctx); err != nil {
				logger.Printf("Initial sync failed, serving cached notes: %v", err)
			}
		}

		var wg gosync.WaitGroup
		run := func(fn func()) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn()
			}()
		}

		if a.ownerID != 0 {
			run(func() { a.coord.Run(ctx, a.settings.SyncInterval) })
		}

		if !noNotify {
			scheduler := newScheduler(ctx, a)
			run(func() { scheduler.Run(ctx) })
		}

		if !noBot {
			if runner, err := newBotRunner(a); err != nil {
				logger.Printf("Telegram bot disabled: %v", err)
			} else {
				run(func() {
					if err := runner.Run(ctx); err != nil {
						logger.Printf("Telegram bot stopped: %v", err)
					}
				})
			}
		}

		if err := config.Watch(settingsPath, a.logger("config"), nil); err != nil {
			logger.Printf("Not watching settings: %v", err)
		}

		server := api.New(api.Config{
			Notes:        a.coord,
			Chats:        a.store,
			Parser:       a.parser,
			Assistant:    newAssistant(a),
			Hub:          hub,
			SettingsPath: settingsPath,
			Logger:       a.logger("api"),
		})

		fmt.Printf("%s Serving on %s\n", renderPass("✓"), addr)
		fmt.Printf("   WebSocket: ws://localhost%s/ws\n", addr)
		fmt.Printf("   Health:    http://localhost%s/health\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		err := server.ListenAndServe(ctx, addr)
		cancel()
		wg.Wait()
		if err != nil {
			fatalf("server failed: %v", err)
		}
	},
}

// newSink combines the configured notification channels. The log sink is
// always present so a reminder is never silently lost.
func newSink(ctx context.Context, a *app) notifier.Sink {
	logger := a.logger("notifier")
	sinks := notifier.MultiSink{notifier.NewLogSink(logger)}

	if a.settings.DesktopNotifications {
		sinks = append(sinks, notifier.NewDesktopSink(""))
	}
	if len(a.settings.FCMTokens) > 0 && !offline {
		push, err := notifier.NewPushSink(ctx, a.settings.FirebaseCredentials, a.settings.FCMTokens, a.logger("fcm"))
		if err != nil {
			logger.Printf("Push notifications disabled: %v", err)
		} else {
			sinks = append(sinks, push)
		}
	}
	return sinks
}

func newScheduler(ctx context.Context, a *app) *notifier.Scheduler {
	return notifier.New(a.store, newSink(ctx, a),
		notifier.WithConfig(notifier.Config{
			Interval:     a.settings.NotifyInterval,
			RetryBackoff: a.settings.NotifyRetry,
			Logger:       a.logger("notifier"),
		}),
		notifier.WithStatusPusher(a.coord),
	)
}

func newAssistant(a *app) *assistant.Assistant {
	logger := a.logger("assistant")

	var completer assistant.Completer
	if c, err := assistant.NewAnthropic(a.settings.AnthropicAPIKey, a.settings.AnthropicModel); err != nil {
		logger.Printf("AI assistant disabled: %v", err)
	} else {
		completer = c
	}
	return assistant.New(completer, logger)
}

func newBotRunner(a *app) (*bot.Runner, error) {
	if a.settings.TelegramToken == "" {
		return nil, fmt.Errorf("telegram_token is not set")
	}
	logger := a.logger("bot")
	handler := bot.NewHandler(a.parser, a.coord, a.ownerID, logger)
	return bot.NewRunner(a.settings.TelegramToken, handler, logger)
}

var botCmd = &cobra.Command{
	Use:     "bot",
	GroupID: "services",
	Short:   "Run only the Telegram bot",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.close()

		runner, err := newBotRunner(a)
		if err != nil {
			fatalf("%v", err)
		}
		if err := runner.Run(ctx); err != nil {
			fatalf("%v", err)
		}
	},
}

var notifyCmd = &cobra.Command{
	Use:     "notify",
	GroupID: "services",
	Short:   "Run one reminder check, or keep checking with --watch",
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		pull, _ := cmd.Flags().GetBool("sync")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.close()

		if pull && a.ownerID != 0 {
			if _, err := a.coord.Sync(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "%s Sync failed, using cached notes: %v\n", renderWarn("⚠"), err)
			}
		}

		scheduler := newScheduler(ctx, a)
		if watch {
			scheduler.Run(ctx)
			return
		}

		result, err := scheduler.RunCycle(ctx)
		if err != nil {
			fatalf("check failed: %v", err)
		}
		fmt.Printf("%s Due: %d  Notified: %d  Failed: %d\n",
			renderAccent("⏰"), result.Due, result.Notified, result.Failed)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default listen_addr from settings)")
	serveCmd.Flags().Bool("no-bot", false, "Do not start the Telegram bot")
	serveCmd.Flags().Bool("no-notify", false, "Do not start the reminder scheduler")

	notifyCmd.Flags().Bool("watch", false, "Keep checking on the configured interval")
	notifyCmd.Flags().Bool("sync", true, "Pull from Firestore before checking")

	rootCmd.AddCommand(serveCmd, botCmd, notifyCmd)
}
