// Package auth verifies Telegram WebApp initData payloads and exposes the
// gin middleware that authenticates Mini-App requests.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Verification failures. The request is rejected with no state change.
var (
	ErrInvalidAuth = errors.New("initData signature mismatch")
	ErrMissingHash = errors.New("initData hash field missing")
	ErrExpired     = errors.New("initData auth_date too old")
)

// WebAppUser is the user object embedded in initData.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Language  string `json:"language_code"`
	IsPremium bool   `json:"is_premium"`
}

// InitData is the verified content of a Telegram WebApp initData string.
type InitData struct {
	User       WebAppUser
	AuthDate   time.Time
	StartParam string
}

// Verifier validates initData strings against a bot token.
type Verifier struct {
	secret []byte
	maxAge time.Duration
}

// NewVerifier derives the HMAC key as SHA256(bot_token), per the Telegram
// WebApp validation scheme.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	secret := sha256.Sum256([]byte(botToken))
	return &Verifier{secret: secret[:], maxAge: maxAge}
}

// Verify checks the initData signature and freshness and returns the parsed
// payload. The data-check string is built by stripping the hash field,
// sorting the remaining key=value pairs lexicographically, and joining them
// with newlines; the provided hex digest is compared constant-time.
func (v *Verifier) Verify(initData string, now time.Time) (*InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("malformed initData: %w", err)
	}

	providedHash := values.Get("hash")
	if providedHash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(providedHash)) != 1 {
		return nil, ErrInvalidAuth
	}

	data, err := parseInitData(values)
	if err != nil {
		return nil, err
	}

	if v.maxAge > 0 && now.Sub(data.AuthDate) > v.maxAge {
		return nil, ErrExpired
	}

	return data, nil
}

// parseInitData extracts the typed fields from verified query values.
func parseInitData(values url.Values) (*InitData, error) {
	rawDate := values.Get("auth_date")
	if rawDate == "" {
		return nil, fmt.Errorf("initData auth_date missing")
	}
	unix, err := strconv.ParseInt(rawDate, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("initData auth_date invalid: %w", err)
	}

	data := &InitData{
		AuthDate:   time.Unix(unix, 0),
		StartParam: values.Get("start_param"),
	}

	if rawUser := values.Get("user"); rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &data.User); err != nil {
			return nil, fmt.Errorf("initData user invalid: %w", err)
		}
	}
	if data.User.ID == 0 {
		return nil, fmt.Errorf("initData user missing")
	}

	return data, nil
}
