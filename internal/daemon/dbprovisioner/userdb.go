package dbprovisioner

import (
	"context"
	"fmt"

	"github.com/raptor-panel/raptor/internal/apierror"
)

// CreateUserDB carves out a per-tenant database/user/ACL entry inside the
// singleton server for the given type, per spec.md §4.L5 "Per-user DB
// creation". The caller is responsible for enforcing the one-per-(user,
// type) uniqueness invariant; this function only talks to the engine.
func (p *Provisioner) CreateUserDB(ctx context.Context, server *Server, req UserDB) error {
	switch server.Type {
	case EnginePostgreSQL:
		return p.execAll(ctx, server, postgresShell(), postgresEnv(server.RootPassword), []string{
			fmt.Sprintf(`CREATE USER "%s" WITH PASSWORD '%s';`, req.DBUser, req.DBPassword),
			fmt.Sprintf(`CREATE DATABASE "%s" OWNER "%s";`, req.DBName, req.DBUser),
			fmt.Sprintf(`GRANT ALL PRIVILEGES ON DATABASE "%s" TO "%s";`, req.DBName, req.DBUser),
		})
	case EngineMySQL:
		return p.execAll(ctx, server, mysqlShell(server.RootPassword), nil, []string{
			fmt.Sprintf("CREATE DATABASE `%s`;", req.DBName),
			fmt.Sprintf("CREATE USER '%s'@'%%' IDENTIFIED BY '%s';", req.DBUser, req.DBPassword),
			fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'%%';", req.DBName, req.DBUser),
			"FLUSH PRIVILEGES;",
		})
	case EngineRedis:
		return p.execAll(ctx, server, redisShell(server.RootPassword), nil, []string{
			fmt.Sprintf("ACL SETUSER %s on >%s resetkeys ~%s:* +@all", req.DBUser, req.DBPassword, req.DBName),
			"ACL SAVE",
		})
	default:
		return apierror.BadRequest(fmt.Sprintf("unsupported database engine type %q", server.Type))
	}
}

// DeleteUserDB performs the inverse of CreateUserDB. Per spec.md §4.L5
// "Delete ... perform the inverse and do not fail the overall operation on
// individual engine-command errors (best-effort teardown)", each step's
// error is logged but does not stop the remaining steps or return an error.
func (p *Provisioner) DeleteUserDB(ctx context.Context, server *Server, req UserDB) {
	var statements []string
	var shell []string

	var env []string

	switch server.Type {
	case EnginePostgreSQL:
		shell = postgresShell()
		env = postgresEnv(server.RootPassword)
		statements = []string{
			fmt.Sprintf(`DROP DATABASE IF EXISTS "%s";`, req.DBName),
			fmt.Sprintf(`DROP USER IF EXISTS "%s";`, req.DBUser),
		}
	case EngineMySQL:
		shell = mysqlShell(server.RootPassword)
		statements = []string{
			fmt.Sprintf("DROP DATABASE IF EXISTS `%s`;", req.DBName),
			fmt.Sprintf("DROP USER IF EXISTS '%s'@'%%';", req.DBUser),
			"FLUSH PRIVILEGES;",
		}
	case EngineRedis:
		shell = redisShell(server.RootPassword)
		statements = []string{
			fmt.Sprintf("ACL DELUSER %s", req.DBUser),
			"ACL SAVE",
		}
	}

	for _, stmt := range statements {
		if _, err := p.engine.Exec(ctx, server.ContainerID, append(shell, stmt), env, ""); err != nil {
			p.log.WithError(err).WithField("statement", stmt).Warn("best-effort db teardown step failed")
		}
	}
}

// ResetPassword changes a tenant's database password. Unlike delete, this
// must succeed end-to-end, per spec.md §4.L5.
func (p *Provisioner) ResetPassword(ctx context.Context, server *Server, req UserDB, newPassword string) error {
	switch server.Type {
	case EnginePostgreSQL:
		return p.execAll(ctx, server, postgresShell(), postgresEnv(server.RootPassword), []string{
			fmt.Sprintf(`ALTER USER "%s" WITH PASSWORD '%s';`, req.DBUser, newPassword),
		})
	case EngineMySQL:
		return p.execAll(ctx, server, mysqlShell(server.RootPassword), nil, []string{
			fmt.Sprintf("ALTER USER '%s'@'%%' IDENTIFIED BY '%s';", req.DBUser, newPassword),
			"FLUSH PRIVILEGES;",
		})
	case EngineRedis:
		return p.execAll(ctx, server, redisShell(server.RootPassword), nil, []string{
			fmt.Sprintf("ACL SETUSER %s on >%s resetkeys ~%s:* +@all", req.DBUser, newPassword, req.DBName),
			"ACL SAVE",
		})
	default:
		return apierror.BadRequest(fmt.Sprintf("unsupported database engine type %q", server.Type))
	}
}

func (p *Provisioner) execAll(ctx context.Context, server *Server, shell []string, env []string, statements []string) error {
	for _, stmt := range statements {
		result, err := p.engine.Exec(ctx, server.ContainerID, append(shell, stmt), env, "")
		if err != nil {
			return apierror.AgentError("exec db statement", err)
		}
		if result.ExitCode != 0 {
			return apierror.AgentError(fmt.Sprintf("db statement failed: %s", result.Output), nil)
		}
	}
	return nil
}

// postgresShell returns the argv prefix that pipes a single SQL statement
// (appended as the last element) into psql as the root user, per spec.md
// §4.L5 "The shell for postgres/mysql is the native CLI with the root
// password". Authentication is supplied via PGPASSWORD rather than an
// argv flag, since psql has no inline-password option.
func postgresShell() []string {
	return []string{"psql", "-U", "postgres", "-c"}
}

func postgresEnv(rootPassword string) []string {
	return []string{"PGPASSWORD=" + rootPassword}
}

func mysqlShell(rootPassword string) []string {
	return []string{"mysql", "-uroot", "-p" + rootPassword, "-e"}
}

// redisShell authenticates as admin, per spec.md §4.L5 "for redis the CLI
// authenticates as admin with the root password".
func redisShell(rootPassword string) []string {
	return []string{"redis-cli", "--user", "admin", "--pass", rootPassword, "--no-auth-warning"}
}
