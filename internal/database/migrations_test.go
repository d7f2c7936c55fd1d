package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("migrations", name))
	require.NoError(t, err)
	return string(data)
}

func TestSchemaAttachesStreakColumnsToExistingUsers(t *testing.T) {
	up := readMigration(t, "000001_create_achievement_schema.up.sql")

	for _, column := range []string{"streak_current", "streak_best", "streak_start", "streak_last_active"} {
		assert.Contains(t, up, "ADD COLUMN IF NOT EXISTS "+column, column)
	}
	assert.Contains(t, up, "users_streak_best_ge_current")
	assert.Contains(t, up, "UNIQUE (user_id, badge_id)")
}

func TestSchemaDownKeepsUsersTable(t *testing.T) {
	down := readMigration(t, "000001_create_achievement_schema.down.sql")

	assert.NotContains(t, down, "DROP TABLE IF EXISTS users")
	assert.Contains(t, down, "DROP COLUMN IF EXISTS streak_current")
}
