package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	contentFile   = "content.txt"
	attachmentDir = "attachments"
	outboxDir     = "outbox"
)

// LocalStore is a folder-backed Collaborator. Each email lives in its own
// directory under the root: a content.txt JSON envelope plus an optional
// attachments/ directory. This mirrors the layout the upstream mail fetcher
// writes, so the core can be run and replayed against a captured inbox.
type LocalStore struct {
	root   string
	logger *slog.Logger
}

// envelope mirrors the content.txt JSON structure.
type envelope struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	ReceivedAt string `json:"received_at"`
}

// NewLocalStore creates a Collaborator over the given email root directory.
func NewLocalStore(root string, logger *slog.Logger) *LocalStore {
	return &LocalStore{
		root:   root,
		logger: logger.With("system", "mail"),
	}
}

// FetchBatch reads up to maxResults email folders in lexical order, which
// matches arrival order for the timestamp-prefixed folder names the fetcher
// writes. Folders that fail to parse are skipped with a warning rather than
// failing the batch.
func (s *LocalStore) FetchBatch(ctx context.Context, maxResults int) ([]EmailRecord, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read email root %s: %w", s.root, err)
	}

	var folders []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != outboxDir {
			folders = append(folders, e.Name())
		}
	}
	sort.Strings(folders)

	records := make([]EmailRecord, 0, len(folders))
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if maxResults > 0 && len(records) >= maxResults {
			break
		}

		rec, err := s.readEmail(folder)
		if err != nil {
			s.logger.Warn("skipping unreadable email folder", "folder", folder, "error", err)
			continue
		}
		records = append(records, *rec)
	}

	s.logger.Info("fetched email batch", "count", len(records))
	return records, nil
}

// Send writes the message to the outbox directory. A real transport would
// hand it to the mail provider; the core only requires delivery to be
// acknowledged or fail.
func (s *LocalStore) Send(ctx context.Context, to, subject, body string) (*DeliveryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	dir := filepath.Join(s.root, outboxDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create outbox: %w", err)
	}

	msg := map[string]string{
		"id":      id,
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode outbox message: %w", err)
	}

	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write outbox message: %w", err)
	}

	s.logger.Info("message queued for delivery", "to", to, "subject", subject)
	return &DeliveryResult{MessageID: id, SentAt: time.Now().UTC()}, nil
}

func (s *LocalStore) readEmail(folder string) (*EmailRecord, error) {
	dir := filepath.Join(s.root, folder)

	data, err := os.ReadFile(filepath.Join(dir, contentFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", contentFile, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", contentFile, err)
	}

	id := env.ID
	if id == "" {
		id = folder
	}

	receivedAt := time.Now().UTC()
	if env.ReceivedAt != "" {
		if ts, err := time.Parse(time.RFC3339, env.ReceivedAt); err == nil {
			receivedAt = ts
		}
	}

	var attachments []string
	attDir := filepath.Join(dir, attachmentDir)
	if entries, err := os.ReadDir(attDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				attachments = append(attachments, filepath.Join(attDir, e.Name()))
			}
		}
		sort.Strings(attachments)
	}

	return &EmailRecord{
		ID:          id,
		Sender:      env.Sender,
		Subject:     env.Subject,
		Body:        env.Content,
		Attachments: attachments,
		ReceivedAt:  receivedAt,
	}, nil
}
