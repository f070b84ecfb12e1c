package activity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(conn, clk, zap.NewNop()), clk
}

func record(email, app string) Record {
	return Record{UserEmail: email, App: app, Action: "open"}
}

func TestTrack(t *testing.T) {
	svc, clk := newTestService(t)

	uid := snowflake.ID(42)
	entry, err := svc.Track(context.Background(), Record{
		UserID:     &uid,
		UserEmail:  "Dev@TerraLink.cl",
		UserRole:   "admin",
		UserDomain: "TerraLink.cl",
		App:        "crm",
		AppName:    "Sales CRM",
		Action:     "opened_dashboard",
		Metadata:   map[string]any{"section": "sales"},
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	const prefix = "act_1748779200_"
	if !strings.HasPrefix(entry.ID, prefix) {
		t.Fatalf("id = %q, want act_<unix>_<suffix> for the fake clock", entry.ID)
	}
	if got := len(entry.ID) - len(prefix); got != 8 {
		t.Fatalf("id suffix = %d hex chars, want 8", got)
	}
	if entry.UserID == nil || *entry.UserID != uid {
		t.Fatalf("user id = %v, want %d", entry.UserID, uid)
	}
	if entry.UserEmail != "dev@terralink.cl" {
		t.Fatalf("email not normalized: %q", entry.UserEmail)
	}
	if entry.UserDomain != "terralink.cl" {
		t.Fatalf("domain not normalized: %q", entry.UserDomain)
	}
	if entry.UserRole != "admin" || entry.AppName != "Sales CRM" {
		t.Fatalf("role/app name not carried: %q %q", entry.UserRole, entry.AppName)
	}
	if !entry.CreatedAt.Equal(clk.Now()) {
		t.Fatalf("created at %v, want %v", entry.CreatedAt, clk.Now())
	}
}

func TestTrackWithoutUserID(t *testing.T) {
	svc, _ := newTestService(t)

	entry, err := svc.Track(context.Background(), record("dev@terralink.cl", "crm"))
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if entry.UserID != nil {
		t.Fatalf("user id = %v, want nil", entry.UserID)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Track(ctx, record("dev@terralink.cl", "crm")); err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
		clk.Advance(time.Minute)
	}

	entries, err := svc.List(ctx, Filter{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
			t.Fatal("entries not newest first")
		}
	}
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed := []struct{ email, app string }{
		{"alice@terralink.cl", "crm"},
		{"alice@terralink.cl", "wiki"},
		{"bob@terralink.cl", "crm"},
	}
	for _, s := range seed {
		if _, err := svc.Track(ctx, record(s.email, s.app)); err != nil {
			t.Fatalf("track: %v", err)
		}
	}

	byUser, err := svc.List(ctx, Filter{UserEmail: "ALICE@terralink.cl"})
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("alice entries = %d, want 2", len(byUser))
	}

	byApp, err := svc.List(ctx, Filter{App: "crm"})
	if err != nil {
		t.Fatalf("list by app: %v", err)
	}
	if len(byApp) != 2 {
		t.Fatalf("crm entries = %d, want 2", len(byApp))
	}

	both, err := svc.List(ctx, Filter{UserEmail: "alice@terralink.cl", App: "crm"})
	if err != nil {
		t.Fatalf("list by both: %v", err)
	}
	if len(both) != 1 {
		t.Fatalf("entries = %d, want 1", len(both))
	}
}

func TestListClampsLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Track(ctx, record("dev@terralink.cl", "crm")); err != nil {
		t.Fatalf("track: %v", err)
	}

	for _, limit := range []int{0, -5, 5000} {
		entries, err := svc.List(ctx, Filter{Limit: limit})
		if err != nil {
			t.Fatalf("list limit %d: %v", limit, err)
		}
		if len(entries) != 1 {
			t.Fatalf("entries = %d, want 1", len(entries))
		}
	}
}
