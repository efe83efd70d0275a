package subscription

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	tokenSalt = []byte("moodleoverflow.core.subscription.token")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Tokenizer issues and checks one-click unsubscribe tokens embedded in
// notification mails. Tokens are bound to a (user, forum) pair and expire.
type Tokenizer struct {
	secret  []byte
	timeout time.Duration
}

func NewTokenizer(secret []byte, timeout time.Duration) *Tokenizer {
	return &Tokenizer{secret: secret, timeout: timeout}
}

// MakeToken generates an unsubscribe token for a user on a forum.
func (t *Tokenizer) MakeToken(userID, forumID int64) string {
	return t.makeTokenWithTimestamp(userID, forumID, numDaysSince2001(NowFunc()))
}

// VerifyToken checks that an unsubscribe token is valid and unexpired.
func (t *Tokenizer) VerifyToken(userID, forumID int64, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(t.makeTokenWithTimestamp(userID, forumID, ts)), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	if (numDaysSince2001(NowFunc()) - ts) > int(t.timeout/(24*time.Hour)) {
		return ErrTokenExpired
	}
	return nil
}

func (t *Tokenizer) makeTokenWithTimestamp(userID, forumID int64, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, t.sign(hashValue(userID, forumID, ts)))
}

func (t *Tokenizer) sign(val []byte) string {
	key := sha256.Sum256(append(tokenSalt, t.secret...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func hashValue(userID, forumID int64, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.FormatInt(userID, 10))
	val.WriteString(strconv.FormatInt(forumID, 10))
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}
