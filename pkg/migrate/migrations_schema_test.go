package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasberthier/prepalettres-backend/pkg/migrate"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestSubscriptionsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_subscriptions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS subscriptions",
		"ux_subscriptions_user_id",
		"ux_subscriptions_stripe_subscription_id",
		"CHECK (exercises_this_week >= 0)",
		"CHECK (tutoring_hours >= 0)",
		"DROP TABLE IF EXISTS subscriptions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestExercisesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_exercises.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS exercises",
		"CHECK (score >= 0 AND score <= 20)",
		"ix_exercises_user_id_created_at",
		"DROP TABLE IF EXISTS exercises",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWorkAnalysesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_work_analyses.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS work_analyses",
		"ux_work_analyses_work",
		"TEXT[] NOT NULL DEFAULT '{}'",
		"DROP TABLE IF EXISTS work_analyses",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
