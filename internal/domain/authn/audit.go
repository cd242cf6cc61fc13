package authn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futuremed/wardcare/internal/platform/db"
)

// LoginAudit records one completed sign-in.
type LoginAudit struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	LoginTime time.Time `db:"login_time" json:"login_time"`
	Success   bool      `db:"success" json:"success"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
}

type AuditRepository interface {
	Record(ctx context.Context, a *LoginAudit) error
}

type auditRepoPG struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) AuditRepository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) Record(ctx context.Context, a *LoginAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	q := `INSERT INTO login_audit (id, username, login_time, success, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`
	args := []interface{}{a.ID, a.Username, a.LoginTime, a.Success, a.IPAddress, a.UserAgent}

	var err error
	if tx := db.TxFromContext(ctx); tx != nil {
		_, err = tx.Exec(ctx, q, args...)
	} else {
		_, err = r.pool.Exec(ctx, q, args...)
	}
	if err != nil {
		return fmt.Errorf("record login audit: %w", err)
	}
	return nil
}
