package storetest

import (
	"context"
	"testing"

	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/store"
)

// ProjectRoundTrip appends two turns through a Project and checks that
// Restore returns them in order.
func ProjectRoundTrip(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	p, err := store.Open(ctx, st, "churn", "part1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	turns := [][]provider.Message{
		{
			{Role: provider.RoleUser, Content: "Load the user_payments table."},
			{Role: provider.RoleAssistant, Content: "Loaded 1,000 rows."},
		},
		{
			{Role: provider.RoleUser, Content: "Any missing values?"},
			{Role: provider.RoleAssistant, Content: "None <found>."},
		},
	}
	for _, turn := range turns {
		if err := p.AppendMessages(ctx, turn); err != nil {
			t.Fatalf("AppendMessages() error = %v", err)
		}
	}

	got, err := p.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	want := append(append([]provider.Message{}, turns[0]...), turns[1]...)
	if len(got) != len(want) {
		t.Fatalf("Restore() returned %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Role != want[i].Role || got[i].Content != want[i].Content {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if err := p.Rename(ctx, "part2"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if p.Part != "part2" {
		t.Errorf("Part = %q, want part2", p.Part)
	}
	docs, err := p.Documents(ctx)
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "part2" {
		t.Errorf("Documents() = %+v", docs)
	}

	if err := p.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if msgs, err := p.Restore(ctx); err != nil || len(msgs) != 0 {
		t.Errorf("Restore() after DeleteAll = %v, %v; want empty", msgs, err)
	}
}
