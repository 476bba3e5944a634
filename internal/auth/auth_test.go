package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("unique hashes", func(t *testing.T) {
		pw := "password1234"
		hash, err := HashPassword(pw)
		if err != nil {
			t.Fatalf("password hash fail #1: %+v", err)
		}

		hash2, err := HashPassword(pw)
		if err != nil {
			t.Fatalf("password hash fail #2: %+v", err)
		}

		if hash == hash2 {
			t.Fatalf("hash and hash2 are the same hashes; should be different: %s, %s", hash, hash2)
		}
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := HashPassword("")
		if err != nil {
			t.Errorf("HashPassword() failed on empty string: %+v", err)
		}
	})
}

func TestCheckPasswordHash(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		checkPw   string
		hash      string
		wantErr   bool
		wantMatch bool
	}{
		{"correct pw", "mypassword1234", "mypassword1234", "", false, true},
		{"incorrect pw", "mypassword1234", "passwordDD1234", "", false, false},
		{"wrong hash", "mypassword1234", "passwordDD1234", "not-a-hash", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hash string
			var err error

			if tt.hash != "" {
				hash = tt.hash
			} else {
				hash, err = HashPassword(tt.password)
				if err != nil {
					t.Fatalf("%+v", err)
				}
			}

			isMatch, err := CheckPasswordHash(tt.checkPw, hash)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckPasswordHash() error = %+v", err)
			}
			if isMatch != tt.wantMatch {
				t.Errorf("want match = %v, got %v", tt.wantMatch, isMatch)
			}
		})
	}
}

func TestJWT(t *testing.T) {
	const tokenSecret = "validtokensecret"

	t.Run("Valid_JWT", func(t *testing.T) {
		userID := uuid.New()
		tokenString, err := MakeJWT(userID, tokenSecret, "msglog", 15*time.Second)
		require.NoError(t, err)

		gotUserID, err := ValidateJWT(tokenString, tokenSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, gotUserID)
	})

	t.Run("No_expiry", func(t *testing.T) {
		userID := uuid.New()
		tokenString, err := MakeJWT(userID, tokenSecret, "", 0)
		require.NoError(t, err)

		claims := &jwt.RegisteredClaims{}
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
		require.NoError(t, err)
		assert.Nil(t, claims.ExpiresAt)

		gotUserID, err := ValidateJWT(tokenString, tokenSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, gotUserID)
	})

	t.Run("Incorrect_secret", func(t *testing.T) {
		tokenString, err := MakeJWT(uuid.New(), tokenSecret, "", 15*time.Second)
		require.NoError(t, err)

		_, err = ValidateJWT(tokenString, "fakesecret")
		assert.Error(t, err)
	})

	t.Run("Expired_token", func(t *testing.T) {
		tokenString, err := MakeJWT(uuid.New(), tokenSecret, "", -1*time.Second)
		require.NoError(t, err)

		// A negative lifetime means no exp claim, so build an expired one by hand.
		claims := jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tokenSecret))
		require.NoError(t, err)

		_, err = ValidateJWT(expired, tokenSecret)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)

		_, err = ValidateJWT(tokenString, tokenSecret)
		assert.NoError(t, err)
	})

	t.Run("Corrupt_token", func(t *testing.T) {
		_, err := ValidateJWT("corrupttoken", tokenSecret)
		assert.Error(t, err)
	})

	t.Run("Unsigned_token", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: uuid.NewString()}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ValidateJWT(unsigned, tokenSecret)
		assert.Error(t, err)
	})

	t.Run("Subject_not_uuid", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "42"}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tokenSecret))
		require.NoError(t, err)

		_, err = ValidateJWT(tok, tokenSecret)
		assert.Error(t, err)
	})
}

func TestTokenService(t *testing.T) {
	_, err := NewTokenService("", "msglog", 0)
	assert.Error(t, err)

	s, err := NewTokenService("operator-secret", "msglog", time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	tok, err := s.IssueToken(userID)
	require.NoError(t, err)

	got, err := s.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	other, err := NewTokenService("another-secret", "msglog", time.Hour)
	require.NoError(t, err)
	_, err = other.VerifyToken(tok)
	assert.Error(t, err)
}

func TestGetUserFromContext(t *testing.T) {
	t.Run("is_valid_UUID", func(t *testing.T) {
		wantUserID := uuid.New()
		ctx := WithUser(context.Background(), wantUserID)
		gotUserID, err := GetUserFromContext(ctx)
		if err != nil {
			t.Fatalf("GetUserFromContext(): expected userID but got error = %+v", err)
		}
		if gotUserID != wantUserID {
			t.Errorf("want %+v but got %+v", wantUserID, gotUserID)
		}
	})

	t.Run("invalid_UUID", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), UserIDKey, "not-UUID")
		_, err := GetUserFromContext(ctx)
		if err == nil {
			t.Fatal("GetUserFromContext(): expected error but got none")
		}
	})

	t.Run("nil_UUID", func(t *testing.T) {
		ctx := WithUser(context.Background(), uuid.Nil)
		_, err := GetUserFromContext(ctx)
		if err == nil {
			t.Fatal("GetUserFromContext(): expected error but got none")
		}
	})

	t.Run("no_context", func(t *testing.T) {
		_, err := GetUserFromContext(context.Background())
		if err == nil {
			t.Fatal("GetUserFromContext(): expected error but got none")
		}
	})
}
