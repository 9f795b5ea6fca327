package repository

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/reelprompt/reelprompt/migrations"
)

func TestUpMigrations_OrderAndFilter(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("SELECT 2")},
		"000001_a.up.sql":   {Data: []byte("SELECT 1")},
		"000001_a.down.sql": {Data: []byte("SELECT 0")},
		"README.md":         {Data: []byte("docs")},
	}

	got, err := UpMigrations(fsys)
	if err != nil {
		t.Fatalf("UpMigrations() error = %v", err)
	}
	want := []string{"000001_a.up.sql", "000002_b.up.sql"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UpMigrations() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpMigrations_EmbeddedSchema(t *testing.T) {
	t.Parallel()

	got, err := UpMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("UpMigrations() error = %v", err)
	}
	want := []string{
		"000001_users.up.sql",
		"000002_email_bonuses.up.sql",
		"000003_prompts.up.sql",
		"000004_purchases.up.sql",
		"000005_ledger.up.sql",
		"000006_stripe_events.up.sql",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("embedded migrations mismatch (-want +got):\n%s", diff)
	}
}
