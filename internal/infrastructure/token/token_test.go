package token

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/guiapractica/cuentas/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestHexTokenGenerator_Generate(t *testing.T) {
	gen := NewHexTokenGenerator()
	hexRe := regexp.MustCompile(`^[0-9a-f]{64}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if !hexRe.MatchString(tok) {
			t.Fatalf("expected 64 hex chars, got %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = true
	}
}

func TestJWTSessionIssuer_RoundTrip(t *testing.T) {
	issuer := NewJWTSessionIssuer(testSecret, time.Hour, "")

	tok, exp, err := issuer.Issue("user-1", "Ana")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Name != "Ana" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTSessionIssuer_RejectsExpired(t *testing.T) {
	issuer := NewJWTSessionIssuer(testSecret, time.Minute, "")
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := issuer.Issue("user-1", "Ana")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(tok); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestJWTSessionIssuer_RejectsTampering(t *testing.T) {
	issuer := NewJWTSessionIssuer(testSecret, time.Hour, "")
	tok, _, _ := issuer.Issue("user-1", "Ana")

	other := NewJWTSessionIssuer(strings.Repeat("x", 32), time.Hour, "")
	forged, _, _ := other.Issue("user-2", "Eve")

	parts := strings.Split(tok, ".")
	flipped := parts[0] + "." + parts[1] + "." + strings.Map(func(r rune) rune {
		if r == 'A' {
			return 'B'
		}
		return 'A'
	}, parts[2])

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"uid": "user-1", "iss": DefaultIssuer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("building none token: %v", err)
	}

	foreignIssuer := NewJWTSessionIssuer(testSecret, time.Hour, "someone-else")
	foreign, _, _ := foreignIssuer.Issue("user-1", "Ana")

	for name, candidate := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"other secret":   forged,
		"flipped sig":    flipped,
		"alg none":       none,
		"foreign issuer": foreign,
	} {
		if _, err := issuer.Verify(candidate); !errors.Is(err, domain.ErrInvalidSession) {
			t.Fatalf("%s: expected ErrInvalidSession, got %v", name, err)
		}
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secreto1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "secreto1" {
		t.Fatalf("expected hash to differ from plaintext")
	}
	again, _ := h.Hash("secreto1")
	if again == hash {
		t.Fatalf("expected salted hashes to differ")
	}

	if ok, err := h.Verify("secreto1", hash); !ok || err != nil {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	if ok, err := h.Verify("secreto2", hash); ok || err != nil {
		t.Fatalf("expected clean mismatch, got %v %v", ok, err)
	}
	if _, err := h.Verify("secreto1", "not-a-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestBcryptHasher_LengthLimit(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	exact := strings.Repeat("a", MaxPasswordBytes)

	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("Hash of %d bytes returned error: %v", MaxPasswordBytes, err)
	}
	if ok, err := h.Verify(exact, hash); !ok || err != nil {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	// Sharing the first 72 bytes must not be enough to match.
	if ok, err := h.Verify(exact+"b", hash); ok || err != nil {
		t.Fatalf("expected clean mismatch for an over-long password, got %v %v", ok, err)
	}
	if _, err := h.Hash(exact + "b"); err == nil {
		t.Fatalf("expected Hash to reject more than %d bytes", MaxPasswordBytes)
	}
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	if h := NewBcryptHasher(0); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
}
