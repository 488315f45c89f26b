// Command tugas keeps coursework deadlines: notes arrive from Telegram, the
// web UI or the command line, live in Firestore, are cached locally and
// trigger reminders before they are due.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notetugas/tugas/internal/config"
)

var (
	settingsPath string
	offline      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "tugas",
	Short: "Coursework deadline notes with reminders",
	Long: `tugas records coursework tasks sent as one-line commands such as

  matkul Basis Data, tugas ERD, deadline besok 23:59

stores them in Firestore, keeps a local SQLite cache for fast reads and
reminds you when a deadline is less than a day away.

Run 'tugas serve' to start the API, realtime updates, the reminder
scheduler and (when a token is configured) the Telegram bot.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "notes", Title: "Notes:"},
		&cobra.Group{ID: "services", Title: "Services:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", config.DefaultPath, "Settings file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use an in-memory remote store instead of Firestore")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log to the log file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
