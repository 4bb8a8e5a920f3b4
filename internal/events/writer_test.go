package events_test

import (
	"context"
	"testing"

	"opsmap/internal/db"
	"opsmap/internal/domain"
	"opsmap/internal/events"
	"opsmap/internal/migrate"
)

func TestEventWriter(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	w := events.Writer{DB: conn}
	for _, typ := range []string{"function.publish", "function.archive"} {
		err := w.Append(ctx, domain.Event{TS: "2024-01-01T00:00:00Z", Type: typ, WorkspaceID: "w1", EntityKind: "function", EntityID: "f1", ActorID: "alice"})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := w.Latest(ctx, events.Filter{WorkspaceID: "w1"})
	if err != nil || len(got) != 2 {
		t.Fatalf("latest: %+v %v", got, err)
	}
	if got[0].Type != "function.archive" || got[0].Payload != "{}" {
		t.Fatalf("unexpected order or payload: %+v", got[0])
	}
	only, err := w.Latest(ctx, events.Filter{Type: "function.publish"})
	if err != nil || len(only) != 1 {
		t.Fatalf("filtered: %+v %v", only, err)
	}
}
