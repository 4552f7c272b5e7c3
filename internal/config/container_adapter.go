package config

import (
	"github.com/garyjia/club-approvals/internal/application/service"
	"github.com/garyjia/club-approvals/internal/container"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// ToContainerConfig converts the file-based Config into a container.Config.
// Empty approval lists keep the built-in eight seats.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		Approval: container.ApprovalConfig{
			Registry: c.registryConfig(),
			Gates:    c.gateConfig(),
			Recorder: service.RecorderConfig{
				MaxWriteRetries: c.Approval.MaxWriteRetries,
				RetryBackoff:    c.Approval.RetryBackoff,
			},
		},
		Report: container.ReportConfig{
			SheetName: c.Report.SheetName,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			Mode:         c.Server.Mode,
		},
	}
}

func (c *Config) registryConfig() approval.RegistryConfig {
	reg := approval.DefaultRegistryConfig()
	if len(c.Approval.Roles) > 0 {
		reg.Roles = toRoles(c.Approval.Roles)
		reg.ProfileReviewers = reg.Roles
		reg.Departments = nil
	}
	if len(c.Approval.ProfileReviewers) > 0 {
		reg.ProfileReviewers = toRoles(c.Approval.ProfileReviewers)
	}
	if len(c.Approval.Departments) > 0 {
		reg.Departments = make(map[entity.RoleKey]string, len(c.Approval.Departments))
		for role, dept := range c.Approval.Departments {
			reg.Departments[entity.RoleKey(role)] = dept
		}
	}
	return reg
}

// gateConfig returns nil when no gates are configured so the container applies its defaults
func (c *Config) gateConfig() service.GateConfig {
	if len(c.Approval.Gates) == 0 {
		return nil
	}
	gates := make(service.GateConfig, len(c.Approval.Gates))
	for action, roles := range c.Approval.Gates {
		gates[service.GatedAction(action)] = toRoles(roles)
	}
	return gates
}

func toRoles(in []string) []entity.RoleKey {
	out := make([]entity.RoleKey, len(in))
	for i, s := range in {
		out[i] = entity.RoleKey(s)
	}
	return out
}
