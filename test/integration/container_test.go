//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/futuremed/wardcare/internal/platform/db"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "wardcare"
	pgPassword = "wardcare"
	pgDatabase = "wardcare_it"
)

// pgContainer is a disposable postgres started through the Docker CLI.
// Docker picks the host port; --rm removes the container once stopped.
type pgContainer struct {
	id   string
	host string
}

func startPostgresContainer(ctx context.Context) (string, func(), error) {
	c, err := runPostgres(ctx)
	if err != nil {
		return "", nil, err
	}
	if err := c.waitReady(ctx, time.Minute); err != nil {
		c.stop()
		return "", nil, err
	}
	return c.url(), c.stop, nil
}

func runPostgres(ctx context.Context) (*pgContainer, error) {
	out, err := docker(ctx, "run", "--rm", "-d",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER="+pgUser,
		"-e", "POSTGRES_PASSWORD="+pgPassword,
		"-e", "POSTGRES_DB="+pgDatabase,
		pgImage)
	if err != nil {
		return nil, err
	}
	c := &pgContainer{id: out}

	mapped, err := docker(ctx, "port", c.id, "5432/tcp")
	if err != nil {
		c.stop()
		return nil, err
	}
	// "docker port" may print one line per address family.
	c.host = strings.TrimSpace(strings.SplitN(mapped, "\n", 2)[0])
	if _, _, err := net.SplitHostPort(c.host); err != nil {
		c.stop()
		return nil, fmt.Errorf("unexpected port mapping %q: %w", mapped, err)
	}
	return c, nil
}

func (c *pgContainer) url() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", pgUser, pgPassword, c.host, pgDatabase)
}

// waitReady asks pg_isready inside the container first, then confirms the
// published port answers through the application's own pool setup. The
// entrypoint restarts postgres once after init, so one success is not enough.
func (c *pgContainer) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	streak := 0
	for {
		if c.ready(ctx) {
			streak++
			if streak == 2 {
				return nil
			}
		} else {
			streak = 0
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres container %s not ready: %w", c.id[:12], ctx.Err())
		case <-tick.C:
		}
	}
}

func (c *pgContainer) ready(ctx context.Context) bool {
	if _, err := docker(ctx, "exec", c.id, "pg_isready", "-U", pgUser, "-d", pgDatabase); err != nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	pool, err := db.NewPool(pingCtx, db.PoolConfig{URL: c.url(), MaxConns: 1})
	if err != nil {
		return false
	}
	pool.Close()
	return true
}

func (c *pgContainer) stop() {
	_ = exec.Command("docker", "stop", "-t", "2", c.id).Run()
}

func docker(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}
