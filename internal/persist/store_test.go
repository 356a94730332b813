package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/hybridterm/schema"
)

func TestStoreLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, ok, err := store.Load("s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected missing snapshot")
	}
}

func TestStoreConversationLifecycle(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.CreateConversation(ctx, "s1", "c1", created); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if err := store.CreateConversation(ctx, "s1", "c1", created); err != nil {
		t.Fatalf("create conversation twice: %v", err)
	}
	msgs := []schema.Message{
		{Role: schema.RoleUser, Content: "explain", Timestamp: created},
		{Role: schema.RoleAssistant, Content: "sure", Timestamp: created.Add(time.Second)},
	}
	for _, msg := range msgs {
		if err := store.AppendMessage(ctx, "s1", "c1", msg); err != nil {
			t.Fatalf("append message: %v", err)
		}
	}
	if err := store.AppendMessage(ctx, "s1", "missing", msgs[0]); err == nil {
		t.Fatalf("expected error for unknown conversation")
	}

	snapshot, ok, err := store.Load("s1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(snapshot.Conversations) != 1 {
		t.Fatalf("expected one conversation, got %d", len(snapshot.Conversations))
	}
	record := snapshot.Conversations[0]
	if !record.CreatedAt.Equal(created) || len(record.Messages) != 2 || record.Messages[1].Content != "sure" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestStoreMergesSessionInfo(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	model := "opus"
	in1, in2 := int64(10), int64(20)
	if err := store.MergeSessionInfo(ctx, "s1", schema.SessionInfo{Model: &model, InputTokens: &in1}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := store.MergeSessionInfo(ctx, "s1", schema.SessionInfo{InputTokens: &in2}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	snapshot, _, err := store.Load("s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snapshot.Info.Model == nil || *snapshot.Info.Model != "opus" || *snapshot.Info.InputTokens != 20 {
		t.Fatalf("unexpected info %+v", snapshot.Info)
	}
}

func TestStoreSanitizesSessionPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save("../escape", SessionSnapshot{Session: "../escape"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".._escape.json")); err != nil {
		t.Fatalf("expected sanitized file: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, ".._escape.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}
