package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/notetugas/tugas/internal/cache"
	"github.com/notetugas/tugas/internal/config"
	"github.com/notetugas/tugas/internal/logging"
	"github.com/notetugas/tugas/internal/parser"
	"github.com/notetugas/tugas/internal/remote"
	"github.com/notetugas/tugas/internal/sync"
)

// app holds the components shared by every command.
type app struct {
	settings *config.Settings
	logs     *logging.Factory
	store    *cache.Store
	remote   remote.Store
	coord    *sync.Coordinator
	parser   *parser.Parser
	ownerID  int64

	firestore *remote.Firestore
}

// openApp loads settings and opens the cache and the remote store. The
// caller MUST call close() when done.
func openApp(ctx context.Context) (*app, error) {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}

	logs, err := logging.New(logging.Options{File: settings.LogFile, Quiet: quiet})
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings, logs: logs}

	ownerID, err := settings.OwnerID()
	if err != nil && !errors.Is(err, config.ErrOwnerNotSet) {
		a.close()
		return nil, err
	}
	if ownerID == 0 {
		logs.Logger("app").Println("WARNING: telegram_id is not set; notes cannot be created or synced")
	}
	a.ownerID = ownerID

	loc, err := parser.LoadLocation(settings.Timezone)
	if err != nil {
		a.close()
		return nil, err
	}
	a.parser = parser.New(parser.WithLocation(loc))

	a.store, err = cache.Open(settings.DBPath)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.store.InitSchema(ctx); err != nil {
		a.close()
		return nil, err
	}

	if offline {
		mem, err := offlineStore(ctx, a.store, ownerID)
		if err != nil {
			a.close()
			return nil, err
		}
		a.remote = mem
	} else {
		fs, err := remote.NewFirestore(ctx, remote.FirestoreConfig{
			CredentialsFile: settings.FirebaseCredentials,
			ProjectID:       settings.FirebaseProjectID,
			Logger:          logs.Logger("remote"),
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%w (use --offline to run without Firestore)", err)
		}
		a.firestore = fs
		a.remote = fs
	}

	a.coord = sync.New(a.store, a.remote, ownerID, sync.WithLogger(logs.Logger("sync")))
	return a, nil
}

// offlineStore stands in for Firestore. It starts from the cached notes so
// the pull after every command keeps them instead of emptying the cache.
func offlineStore(ctx context.Context, store *cache.Store, ownerID int64) (*remote.Memory, error) {
	notes, err := store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached notes: %w", err)
	}
	mem := remote.NewMemory()
	for _, n := range notes {
		n.OwnerID = ownerID
		mem.Put(n)
	}
	return mem, nil
}

func (a *app) logger(component string) *log.Logger {
	return a.logs.Logger(component)
}

func (a *app) close() {
	if a.firestore != nil {
		_ = a.firestore.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logs.Close()
}

// mustOpenApp is openApp for commands that cannot continue without it.
func mustOpenApp(ctx context.Context) *app {
	a, err := openApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	return a
}
