// Command issue-token mints a bearer token for a reviewer or club leader,
// signed with the same secret the server verifies.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/garyjia/club-approvals/internal/config"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/garyjia/club-approvals/internal/infrastructure/identity"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the YAML config file (empty for env only)")
	envPath := pflag.String("env-file", ".env", "optional .env file loaded before the config")
	userID := pflag.StringP("user", "u", "", "actor id placed in the token (required)")
	role := pflag.StringP("role", "r", "", "role key, e.g. dean or cse_hod; leave empty for a club leader")
	name := pflag.StringP("name", "n", "", "display name")
	pflag.Parse()

	if err := issue(*configPath, *envPath, *userID, *role, *name); err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(1)
	}
}

func issue(configPath, envPath, userID, role, name string) error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}

	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if role != "" {
		registry, err := approval.NewRegistry(cfg.ToContainerConfig().Approval.Registry)
		if err != nil {
			return err
		}
		if !registry.IsValidRole(entity.RoleKey(role)) {
			return fmt.Errorf("unknown role %q, expected one of %v", role, registry.Roles())
		}
	}

	resolver, err := identity.NewJWTResolver(identity.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	if err != nil {
		return err
	}

	token, err := resolver.Issue(entity.ActorIdentity{ID: userID, Role: entity.RoleKey(role), Name: name})
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
