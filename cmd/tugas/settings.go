package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/notetugas/tugas/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	GroupID: "setup",
	Short:   "Show or change persisted settings",
	Long: `Show the settings file with secrets masked, or change values:

  tugas settings
  tugas settings set telegram_id 123456789
  tugas settings set telegram_token 123:ABC`,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := config.Load(settingsPath)
		if err != nil {
			fatalf("%v", err)
		}

		public := s.Public()
		keys := make([]string, 0, len(public))
		for k := range public {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Printf("\n%s Settings (%s)\n\n", renderAccent("⚙"), settingsPath)
		for _, k := range keys {
			fmt.Printf("  %-22s %v\n", k, public[k])
		}
		fmt.Println()
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := config.Load(settingsPath)
		if err != nil {
			fatalf("%v", err)
		}

		key, value := args[0], args[1]
		var u config.Update
		switch key {
		case config.KeyTelegramToken:
			u.TelegramToken = &value
		case config.KeyTelegramID:
			u.TelegramID = &value
		case config.KeyAnthropicAPIKey:
			u.AnthropicAPIKey = &value
		case config.KeyAnthropicModel:
			u.AnthropicModel = &value
		case config.KeyTimezone:
			u.Timezone = &value
		case config.KeyFCMTokens:
			u.FCMTokens = append(s.FCMTokens, value)
		default:
			fmt.Fprintf(os.Stderr, "Error: %q cannot be set from the command line; edit %s\n", key, settingsPath)
			os.Exit(1)
		}
		u.Apply(s)

		if key == config.KeyTelegramID {
			if _, err := s.OwnerID(); err != nil {
				fatalf("%v", err)
			}
		}

		if err := config.Save(settingsPath, s); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s %s saved to %s\n", renderPass("✓"), key, settingsPath)
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
