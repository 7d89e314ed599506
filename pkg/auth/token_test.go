package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/config"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

var testCfg = config.JWTConfig{Secret: "shelter-secret", Issuer: "petpair", ExpirationMinutes: 15}

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	userID := uuid.New()

	token, err := MintAccessToken(testCfg, now, AccessTokenPayload{UserID: userID, Role: enums.UserRoleAdmin, JTI: " jti-9 "})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseAccessToken(testCfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	switch {
	case claims.UserID != userID, claims.Subject != userID.String():
		t.Fatalf("user mismatch: %+v", claims)
	case claims.ID != "jti-9":
		t.Fatalf("jti = %q", claims.ID)
	case !claims.IsAdmin():
		t.Fatalf("role = %s", claims.Role)
	case !claims.ExpiresAt.Time.Equal(now.Add(15 * time.Minute)):
		t.Fatalf("exp = %s", claims.ExpiresAt.Time)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseAccessToken(testCfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("generated jti %q is not a uuid", claims.ID)
	}
	if claims.IsAdmin() {
		t.Fatal("user token reported admin")
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	otherSecret := testCfg
	otherSecret.Secret = "not-the-shelter-secret"
	forged, _ := MintAccessToken(otherSecret, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	otherIssuer := testCfg
	otherIssuer.Issuer = "someone-else"
	foreign, _ := MintAccessToken(otherIssuer, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	stale, _ := MintAccessToken(testCfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             enums.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "petpair"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]struct {
		token string
		want  error
	}{
		"foreign secret":     {forged, jwt.ErrTokenSignatureInvalid},
		"wrong issuer":       {foreign, jwt.ErrTokenInvalidIssuer},
		"expired":            {stale, jwt.ErrTokenExpired},
		"alg none":           {noneAlg, jwt.ErrTokenSignatureInvalid},
	}
	for name, tc := range cases {
		_, err := ParseAccessToken(testCfg, tc.token)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", name, err, tc.want)
		}
	}
}

func TestParseAccessTokenAllowExpired(t *testing.T) {
	stale, err := MintAccessToken(testCfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser, JTI: "stale"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseAccessTokenAllowExpired(testCfg, stale)
	if err != nil {
		t.Fatalf("allow-expired parse: %v", err)
	}
	if claims.ID != "stale" {
		t.Fatalf("jti = %q", claims.ID)
	}
	if _, err := ParseAccessTokenAllowExpired(testCfg, stale+"x"); err == nil {
		t.Fatal("signature must still be checked")
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	user := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser}
	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"missing secret": {config.JWTConfig{Issuer: "petpair", ExpirationMinutes: 5}, user},
		"missing issuer": {config.JWTConfig{Secret: "s", ExpirationMinutes: 5}, user},
		"zero lifetime":  {config.JWTConfig{Secret: "s", Issuer: "petpair"}, user},
		"missing user":   {testCfg, AccessTokenPayload{Role: enums.UserRoleUser}},
		"unknown role":   {testCfg, AccessTokenPayload{UserID: uuid.New(), Role: "superuser"}},
	}
	for name, tc := range cases {
		if _, err := MintAccessToken(tc.cfg, time.Now(), tc.payload); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
