package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/club-approvals/internal/application/service"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CLUB_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/club_approvals.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 3, cfg.Approval.MaxWriteRetries)
	assert.Equal(t, "Reviews", cfg.Report.SheetName)

	cc := cfg.ToContainerConfig()
	require.NoError(t, cc.Validate())
	assert.Len(t, cc.Approval.Registry.Roles, 8)
	assert.Len(t, cc.Approval.Registry.ProfileReviewers, 8)
	assert.Equal(t, "CSE", cc.Approval.Registry.Departments[entity.RoleCSEHOD])
	assert.Nil(t, cc.Approval.Gates)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
database:
  driver: memory
auth:
  jwt_secret: from-file
  token_ttl: 1h
approval:
  max_write_retries: 5
  retry_backoff: 50ms
  gates:
    draft_letter: [tpo, dean]
report:
  sheet_name: Queue
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 50*time.Millisecond, cfg.Approval.RetryBackoff)

	cc := cfg.ToContainerConfig()
	require.NoError(t, cc.Validate())
	assert.Equal(t, 5, cc.Approval.Recorder.MaxWriteRetries)
	assert.Equal(t, []entity.RoleKey{entity.RoleTPO, entity.RoleDean}, cc.Approval.Gates[service.GateDraftLetter])
	assert.Equal(t, "Queue", cc.Report.SheetName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
auth:
  jwt_secret: from-file
database:
  driver: memory
`)
	t.Setenv("CLUB_JWT_SECRET", "from-env")
	t.Setenv("CLUB_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing secret", "database:\n  driver: memory\n"},
		{"unknown driver", "auth:\n  jwt_secret: x\ndatabase:\n  driver: mysql\n"},
		{"postgres without dsn", "auth:\n  jwt_secret: x\ndatabase:\n  driver: postgres\n"},
		{"negative retries", "auth:\n  jwt_secret: x\napproval:\n  max_write_retries: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestToContainerConfig_CustomRoles(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "memory"},
		Auth:     AuthConfig{JWTSecret: "x"},
		Server:   ServerConfig{Port: 8080},
		Approval: ApprovalConfig{
			Roles:            []string{"hod", "principal"},
			ProfileReviewers: []string{"principal"},
			Departments:      map[string]string{"hod": "cse"},
		},
	}

	cc := cfg.ToContainerConfig()
	require.NoError(t, cc.Validate())
	assert.Equal(t, []entity.RoleKey{"hod", "principal"}, cc.Approval.Registry.Roles)
	assert.Equal(t, []entity.RoleKey{"principal"}, cc.Approval.Registry.ProfileReviewers)
	assert.Equal(t, "cse", cc.Approval.Registry.Departments["hod"])
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "CLUB_TEST_DOTENV=loaded\n")
	t.Setenv("CLUB_TEST_DOTENV", "")
	os.Unsetenv("CLUB_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("CLUB_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, LoadDotEnv(""))
}
