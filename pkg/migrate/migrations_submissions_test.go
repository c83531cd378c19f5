package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSubmissionsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_compliance_submissions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no compliance submissions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS compliance_submissions",
		"FOREIGN KEY (owner_user_id) REFERENCES users(id) ON DELETE CASCADE",
		"idx_submissions_owner_variant_key",
		"aggregate_status submission_status NOT NULL DEFAULT 'pending'",
		"DROP TABLE IF EXISTS compliance_submissions",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("migration missing %q", check)
		}
	}
}

func TestOutboxMigrationContainsDLQ(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, check := range []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"WHERE published_at IS NULL",
		"ux_outbox_dlq_event_id",
	} {
		if !strings.Contains(content, check) {
			t.Fatalf("migration missing %q", check)
		}
	}
}
