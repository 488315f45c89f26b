package remote

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/notetugas/tugas/internal/note"
)

// Document field names in the notes collection. They predate this module
// and are shared with other clients of the same project.
const (
	collectionNotes = "notes"

	fieldSubject     = "mata_kuliah"
	fieldDescription = "deskripsi_tugas"
	fieldTimestamp   = "deadline_timestamp"
	fieldDisplay     = "tanggal_deadline_str"
	fieldDate        = "deadline_iso_str"
	fieldStatus      = "status"
	fieldOwner       = "user_id"
	fieldCreatedAt   = "created_at"
)

// FirestoreConfig configures the Firestore adapter.
type FirestoreConfig struct {
	// CredentialsFile is a service account JSON file. Empty means
	// application default credentials.
	CredentialsFile string

	// ProjectID overrides the project from the credentials.
	ProjectID string

	Logger *log.Logger
}

// Firestore stores notes in a Cloud Firestore collection.
type Firestore struct {
	client *firestore.Client
	logger *log.Logger
}

// NewFirestore initializes a Firebase app and opens its Firestore client.
//
// The caller MUST call Close() when done.
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (*Firestore, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var appConfig *firebase.Config
	if cfg.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}

	cfg.Logger.Println("Firestore client initialized")
	return &Firestore{client: client, logger: cfg.Logger}, nil
}

// Close releases the Firestore client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

// ListNotes implements Store.
func (f *Firestore) ListNotes(ctx context.Context, ownerID int64) ([]note.Note, error) {
	docs, err := f.client.Collection(collectionNotes).
		Where(fieldOwner, "==", ownerID).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query notes for owner %d: %w", ownerID, err)
	}

	notes := make([]note.Note, 0, len(docs))
	for _, doc := range docs {
		notes = append(notes, noteFromData(doc.Ref.ID, doc.Data()))
	}
	return notes, nil
}

// CreateNote implements Store.
func (f *Firestore) CreateNote(ctx context.Context, ownerID int64, draft note.Draft) (string, error) {
	data := map[string]interface{}{
		fieldSubject:     draft.Subject,
		fieldDescription: draft.Description,
		fieldTimestamp:   draft.Deadline.Timestamp,
		fieldDisplay:     draft.Deadline.Display,
		fieldDate:        draft.Deadline.Date,
		fieldStatus:      string(note.StatusPending),
		fieldOwner:       ownerID,
		fieldCreatedAt:   firestore.ServerTimestamp,
	}

	ref, _, err := f.client.Collection(collectionNotes).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to add note: %w", err)
	}

	f.logger.Printf("Created note %s (%s)", ref.ID, draft.Subject)
	return ref.ID, nil
}

// UpdateStatus implements Store.
func (f *Firestore) UpdateStatus(ctx context.Context, id string, st note.Status) error {
	err := f.update(ctx, id, []firestore.Update{{Path: fieldStatus, Value: string(st)}})
	if err != nil {
		return err
	}
	f.logger.Printf("Note %s status updated to %q", id, st)
	return nil
}

// UpdateFields implements Store.
func (f *Firestore) UpdateFields(ctx context.Context, id string, fields note.Fields) error {
	updates := updatesFor(fields)
	if len(updates) == 0 {
		return nil
	}
	if err := f.update(ctx, id, updates); err != nil {
		return err
	}
	f.logger.Printf("Note %s updated", id)
	return nil
}

// DeleteNote implements Store.
func (f *Firestore) DeleteNote(ctx context.Context, id string) error {
	if _, err := f.client.Collection(collectionNotes).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	f.logger.Printf("Note %s deleted", id)
	return nil
}

func (f *Firestore) update(ctx context.Context, id string, updates []firestore.Update) error {
	_, err := f.client.Collection(collectionNotes).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update note %s: %w", id, err)
	}
	return nil
}

// updatesFor translates a partial update into document field paths.
func updatesFor(fields note.Fields) []firestore.Update {
	var updates []firestore.Update
	if fields.Subject != nil {
		updates = append(updates, firestore.Update{Path: fieldSubject, Value: *fields.Subject})
	}
	if fields.Description != nil {
		updates = append(updates, firestore.Update{Path: fieldDescription, Value: *fields.Description})
	}
	if fields.Deadline != nil {
		updates = append(updates,
			firestore.Update{Path: fieldTimestamp, Value: fields.Deadline.Timestamp},
			firestore.Update{Path: fieldDisplay, Value: fields.Deadline.Display},
			firestore.Update{Path: fieldDate, Value: fields.Deadline.Date},
		)
	}
	return updates
}

// noteFromData decodes a raw document. Missing fields stay zero so the
// caller can reject incomplete records.
func noteFromData(id string, data map[string]interface{}) note.Note {
	n := note.Note{
		ID:          id,
		Subject:     stringField(data, fieldSubject),
		Description: stringField(data, fieldDescription),
		Deadline: note.Deadline{
			Timestamp: int64Field(data, fieldTimestamp),
			Display:   stringField(data, fieldDisplay),
			Date:      stringField(data, fieldDate),
		},
		Status:  note.Status(stringField(data, fieldStatus)),
		OwnerID: int64Field(data, fieldOwner),
	}
	n.SetDefaults()
	return n
}

func stringField(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// int64Field accepts both integer and float encodings; older writers
// stored epoch seconds as doubles.
func int64Field(data map[string]interface{}, key string) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(math.Round(v))
	}
	return 0
}
