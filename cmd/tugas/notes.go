package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/notetugas/tugas/internal/note"
	"github.com/notetugas/tugas/internal/parser"
	"github.com/notetugas/tugas/internal/sync"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "notes",
	Short:   "List cached notes ordered by deadline",
	Long: `List the notes in the local cache, soonest deadline first.

Use --sync to pull from Firestore first. Structured formats are meant for
scripts:

  tugas list --format json | jq '.[] | select(.status == "pending")'`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		pull, _ := cmd.Flags().GetBool("sync")
		status, _ := cmd.Flags().GetString("status")

		ctx := cmd.Context()
		a := mustOpenApp(ctx)
		defer a.close()

		var (
			notes []note.Note
			err   error
		)
		if pull {
			notes, err = a.coord.Sync(ctx)
		} else {
			notes, err = a.coord.Notes(ctx)
		}
		if err != nil {
			fatalf("%v", err)
		}

		if status != "" {
			want, err := note.ParseStatus(status)
			if err != nil {
				fatalf("%v", err)
			}
			filtered := notes[:0]
			for _, n := range notes {
				if n.Status == want {
					filtered = append(filtered, n)
				}
			}
			notes = filtered
		}

		if format == formatTable && !isTTY() {
			format = formatJSON
		}
		if err := writeNotes(os.Stdout, notes, format, time.Now(), terminalWidth()); err != nil {
			fatalf("%v", err)
		}
	},
}

var addCmd = &cobra.Command{
	Use:     "add [text]",
	GroupID: "notes",
	Short:   "Add a note",
	Long: `Add a note from a one-line command or, with no arguments, an
interactive form.

  tugas add "matkul Kalkulus, tugas latihan 3, deadline jumat 10:00"
  tugas add`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpenApp(ctx)
		defer a.close()

		var (
			draft *note.Draft
			err   error
		)
		if len(args) > 0 {
			draft, err = a.parser.Parse(strings.Join(args, " "))
		} else {
			if !isTTY() {
				fatalf("no text given and stdin is not a terminal")
			}
			draft, err = draftFromForm(a.parser)
		}
		if err != nil {
			fatalf("%v", err)
		}

		id, err := a.coord.CreateNote(ctx, *draft)
		switch {
		case errors.Is(err, sync.ErrStaleCache):
			fmt.Printf("%s Saved %s, but the local cache could not be refreshed: %v\n", renderWarn("⚠"), id, err)
		case err != nil:
			fatalf("%v", err)
		default:
			fmt.Printf("%s Saved %s\n", renderPass("✓"), id)
		}
		fmt.Print(draftSummary(draft))
	},
}

// draftFromForm asks for the three fields interactively. The deadline is
// validated by parsing it.
func draftFromForm(p *parser.Parser) (*note.Draft, error) {
	var subject, description, deadline string

	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mata kuliah").
				Value(&subject).
				Validate(required("subject")),
			huh.NewInput().
				Title("Tugas").
				Value(&description).
				Validate(required("description")),
			huh.NewInput().
				Title("Deadline").
				Description("e.g. besok 23:59, friday 10am, 2026-11-01").
				Value(&deadline).
				Validate(func(s string) error {
					_, err := p.ParseDeadline(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}
	return p.ParseFields(subject, description, deadline)
}

var parseCmd = &cobra.Command{
	Use:     "parse <text>",
	GroupID: "notes",
	Short:   "Show how a note command is understood without saving it",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loc := parser.DefaultLocation()
		if tz, _ := cmd.Flags().GetString("timezone"); tz != "" {
			l, err := parser.LoadLocation(tz)
			if err != nil {
				fatalf("%v", err)
			}
			loc = l
		}

		p := parser.New(parser.WithLocation(loc))
		draft, err := p.Parse(strings.Join(args, " "))
		if err != nil {
			var perr *parser.ParseError
			if errors.As(err, &perr) {
				fmt.Fprintf(os.Stderr, "%s %v\n", renderFail("✗"), perr)
				os.Exit(1)
			}
			fatalf("%v", err)
		}
		fmt.Printf("%s Parsed\n", renderPass("✓"))
		fmt.Print(draftSummary(draft))
	},
}

var statusCmd = &cobra.Command{
	Use:     "status <id> <pending|notified|done|completed>",
	GroupID: "notes",
	Short:   "Set a note's status",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := note.ParseStatus(args[1])
		if err != nil {
			fatalf("%v", err)
		}
		setStatus(cmd.Context(), args[0], st)
	},
}

var doneCmd = &cobra.Command{
	Use:     "done <id>",
	GroupID: "notes",
	Short:   "Mark a note as done",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setStatus(cmd.Context(), args[0], note.StatusDone)
	},
}

func setStatus(ctx context.Context, id string, st note.Status) {
	a := mustOpenApp(ctx)
	defer a.close()

	err := a.coord.UpdateStatus(ctx, id, st)
	if err != nil && !errors.Is(err, sync.ErrStaleCache) {
		fatalf("%v", err)
	}
	fmt.Printf("%s %s is now %s\n", renderPass("✓"), id, st)
}

var editCmd = &cobra.Command{
	Use:     "edit <id>",
	GroupID: "notes",
	Short:   "Edit a note's subject, description or deadline",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpenApp(ctx)
		defer a.close()

		var fields note.Fields
		if cmd.Flags().Changed("subject") {
			v, _ := cmd.Flags().GetString("subject")
			v = strings.TrimSpace(v)
			fields.Subject = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			v = strings.TrimSpace(v)
			fields.Description = &v
		}
		if cmd.Flags().Changed("deadline") {
			v, _ := cmd.Flags().GetString("deadline")
			d, err := a.parser.ParseDeadline(v)
			if err != nil {
				fatalf("%v", err)
			}
			fields.Deadline = &d
		}

		err := a.coord.UpdateFields(ctx, args[0], fields)
		if err != nil && !errors.Is(err, sync.ErrStaleCache) {
			fatalf("%v", err)
		}
		fmt.Printf("%s Updated %s\n", renderPass("✓"), args[0])
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	GroupID: "notes",
	Short:   "Delete a note",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpenApp(ctx)
		defer a.close()

		err := a.coord.DeleteNote(ctx, args[0])
		if err != nil && !errors.Is(err, sync.ErrStaleCache) {
			fatalf("%v", err)
		}
		fmt.Printf("%s Deleted %s\n", renderPass("✓"), args[0])
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "notes",
	Short:   "Pull notes from Firestore into the local cache",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.close()

		if a.ownerID == 0 {
			fatalf("telegram_id is not set in %s", settingsPath)
		}

		fmt.Printf("%s Syncing notes for %d...\n", renderAccent("🔄"), a.ownerID)
		start := time.Now()
		notes, err := a.coord.Sync(ctx)
		if err != nil {
			fatalf("sync failed: %v", err)
		}
		fmt.Printf("%s Sync complete in %v\n", renderPass("✓"), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Notes: %d\n", len(notes))
		fmt.Printf("   Cache: %s\n", a.store.Path())
	},
}

func init() {
	listCmd.Flags().StringP("format", "f", formatTable, "Output format: table, json, yaml or toml")
	listCmd.Flags().Bool("sync", false, "Pull from Firestore before listing")
	listCmd.Flags().String("status", "", "Only show notes with this status")

	parseCmd.Flags().String("timezone", "", "Time zone for relative dates (default Asia/Jakarta)")

	editCmd.Flags().String("subject", "", "New subject")
	editCmd.Flags().String("description", "", "New description")
	editCmd.Flags().String("deadline", "", "New deadline, parsed like the note command")

	rootCmd.AddCommand(listCmd, addCmd, parseCmd, statusCmd, doneCmd, editCmd, rmCmd, syncCmd)
}
