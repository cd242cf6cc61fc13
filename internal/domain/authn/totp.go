package authn

import (
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	secretSize        = 32
	qrSize            = 200
	recoveryCodeCount = 10
	recoveryCodeBytes = 4
)

var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Enrolment is what an employee needs to add the account to an
// authenticator app.
type Enrolment struct {
	Secret    string `json:"secret"`
	URL       string `json:"otpauth_url"`
	QRCodePNG string `json:"qr_code_png"`
}

func newEnrolment(issuer, account string) (*Enrolment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		SecretSize:  secretSize,
		Period:      validateOpts.Period,
		Digits:      validateOpts.Digits,
		Algorithm:   validateOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render totp qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode totp qr: %w", err)
	}
	return &Enrolment{
		Secret:    key.Secret(),
		URL:       key.URL(),
		QRCodePNG: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// validCode checks a 6-digit code against secret at t, one step either side.
func validCode(secret, code string, t time.Time) bool {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t, validateOpts)
	return err == nil && ok
}

// newRecoveryCodes returns single-use backup codes: four random bytes each,
// base32 without padding.
func newRecoveryCodes() ([]string, error) {
	codes := make([]string, 0, recoveryCodeCount)
	buf := make([]byte, recoveryCodeBytes)
	for i := 0; i < recoveryCodeCount; i++ {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate recovery code: %w", err)
		}
		codes = append(codes, strings.TrimRight(base32.StdEncoding.EncodeToString(buf), "="))
	}
	return codes, nil
}
