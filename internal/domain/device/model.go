package device

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTrustDays = 30

// TrustedDevice is a client fingerprint that may skip the 2FA challenge until
// ExpiresAt. Expired rows are kept and ignored by every trust check.
type TrustedDevice struct {
	ID          uuid.UUID `db:"id" json:"id"`
	EmployeeID  uuid.UUID `db:"employee_id" json:"employee_id"`
	Fingerprint string    `db:"fingerprint" json:"-"`
	Label       string    `db:"label" json:"label"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastUsedAt  time.Time `db:"last_used_at" json:"last_used_at"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
}

// TrustedAt reports whether the record still grants trust at now.
func (d *TrustedDevice) TrustedAt(now time.Time) bool {
	return d.ExpiresAt.After(now)
}

// Fingerprint derives the stored device identifier from the user agent and
// client IP. A new IP yields a new fingerprint.
func Fingerprint(userAgent, clientIP string) string {
	sum := sha256.Sum256([]byte(userAgent + "_" + clientIP))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Label names a device for display from its user agent.
func Label(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows Device"
	case strings.Contains(ua, "mac"):
		return "Mac Device"
	case strings.Contains(ua, "linux"):
		return "Linux Device"
	case strings.Contains(ua, "android"):
		return "Android Device"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS Device"
	default:
		return "Unknown Device"
	}
}
