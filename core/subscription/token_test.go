package subscription

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	tkn := NewTokenizer([]byte("secret"), 30*24*time.Hour)

	validToken := tkn.MakeToken(1, 2)

	// generate an expired token
	dayLate := tkn.timeout + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := tkn.MakeToken(1, 2)
	NowFunc = time.Now // reset

	tests := []struct {
		name    string
		userID  int64
		forumID int64
		token   string
		wantErr error
	}{
		{name: "no token", userID: 1, forumID: 2, wantErr: ErrInvalidToken},
		{name: "invalid parts len", userID: 1, forumID: 2, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", userID: 1, forumID: 2, token: "hahaha-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", userID: 1, forumID: 2, token: "NRXWY-sig", wantErr: ErrInvalidToken},
		{name: "tampered signature", userID: 1, forumID: 2, token: validToken + "x", wantErr: ErrInvalidToken},
		{name: "wrong user", userID: 9, forumID: 2, token: validToken, wantErr: ErrInvalidToken},
		{name: "wrong forum", userID: 1, forumID: 9, token: validToken, wantErr: ErrInvalidToken},
		{name: "expired token", userID: 1, forumID: 2, token: expiredToken, wantErr: ErrTokenExpired},
		{name: "valid token", userID: 1, forumID: 2, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tkn.VerifyToken(tt.userID, tt.forumID, tt.token); err != tt.wantErr {
				t.Errorf("VerifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMakeTokenDiffersPerPair(t *testing.T) {
	tkn := NewTokenizer([]byte("secret"), 30*24*time.Hour)

	if tkn.MakeToken(1, 2) == tkn.MakeToken(1, 3) {
		t.Error("MakeToken() must bind the forum id")
	}
	if tkn.MakeToken(1, 2) == tkn.MakeToken(2, 2) {
		t.Error("MakeToken() must bind the user id")
	}
}
