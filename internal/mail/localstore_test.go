package mail_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/conveyorworks/conveyor/internal/mail"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeEmail(t *testing.T, root, folder, id, sender, subject, content string, attachments ...string) {
	t.Helper()

	dir := filepath.Join(root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", folder, err)
	}

	envelope := map[string]string{
		"id":          id,
		"sender":      sender,
		"subject":     subject,
		"content":     content,
		"received_at": "2025-03-10T09:00:00Z",
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "content.txt"), data, 0o644); err != nil {
		t.Fatalf("write content.txt: %v", err)
	}

	if len(attachments) > 0 {
		attDir := filepath.Join(dir, "attachments")
		if err := os.MkdirAll(attDir, 0o755); err != nil {
			t.Fatalf("mkdir attachments: %v", err)
		}
		for _, name := range attachments {
			if err := os.WriteFile(filepath.Join(attDir, name), []byte("fake"), 0o644); err != nil {
				t.Fatalf("write attachment %s: %v", name, err)
			}
		}
	}
}

func TestFetchBatch(t *testing.T) {
	root := t.TempDir()
	writeEmail(t, root, "20250310-0900-b", "id-b", "b@example.com", "Order B", "two desks please")
	writeEmail(t, root, "20250310-0800-a", "id-a", "a@example.com", "Order A", "one chair please", "photo.png")

	store := mail.NewLocalStore(root, testLogger())
	emails, err := store.FetchBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(emails) != 2 {
		t.Fatalf("count: got %d, want 2", len(emails))
	}
	if emails[0].ID != "id-a" || emails[1].ID != "id-b" {
		t.Errorf("order: got %s, %s, want id-a, id-b (lexical folder order)", emails[0].ID, emails[1].ID)
	}
	if emails[0].Sender != "a@example.com" || emails[0].Body != "one chair please" {
		t.Errorf("fields: got %+v", emails[0])
	}
	if len(emails[0].Attachments) != 1 || filepath.Base(emails[0].Attachments[0]) != "photo.png" {
		t.Errorf("attachments: got %v", emails[0].Attachments)
	}
	if emails[0].ReceivedAt.IsZero() {
		t.Error("received_at not parsed")
	}
}

func TestFetchBatchLimit(t *testing.T) {
	root := t.TempDir()
	writeEmail(t, root, "a", "id-a", "a@example.com", "A", "a")
	writeEmail(t, root, "b", "id-b", "b@example.com", "B", "b")
	writeEmail(t, root, "c", "id-c", "c@example.com", "C", "c")

	store := mail.NewLocalStore(root, testLogger())
	emails, err := store.FetchBatch(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(emails) != 2 {
		t.Errorf("count: got %d, want 2", len(emails))
	}
}

func TestFetchBatchSkipsUnreadableFolder(t *testing.T) {
	root := t.TempDir()
	writeEmail(t, root, "a", "id-a", "a@example.com", "A", "a")

	broken := filepath.Join(root, "broken")
	if err := os.MkdirAll(broken, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(broken, "content.txt"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := mail.NewLocalStore(root, testLogger())
	emails, err := store.FetchBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(emails) != 1 || emails[0].ID != "id-a" {
		t.Errorf("got %v, want just id-a", emails)
	}
}

func TestFetchBatchIgnoresOutbox(t *testing.T) {
	root := t.TempDir()
	writeEmail(t, root, "a", "id-a", "a@example.com", "A", "a")

	store := mail.NewLocalStore(root, testLogger())
	if _, err := store.Send(context.Background(), "ops@example.com", "report", "body"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	emails, err := store.FetchBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(emails) != 1 {
		t.Errorf("count: got %d, want 1 (outbox excluded)", len(emails))
	}
}

func TestSend(t *testing.T) {
	root := t.TempDir()
	store := mail.NewLocalStore(root, testLogger())

	result, err := store.Send(context.Background(), "ops@example.com", "Run report", "all posted")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.MessageID == "" {
		t.Error("message id empty")
	}

	data, err := os.ReadFile(filepath.Join(root, "outbox", result.MessageID+".json"))
	if err != nil {
		t.Fatalf("read outbox message: %v", err)
	}

	var msg map[string]string
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("parse outbox message: %v", err)
	}
	if msg["to"] != "ops@example.com" || msg["subject"] != "Run report" || msg["body"] != "all posted" {
		t.Errorf("message: got %v", msg)
	}
}
