package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"

	"github.com/golang-jwt/jwt"
	"github.com/jonboulle/clockwork"
)

const (
	AlgHS256 = "HS256"
	AlgRS256 = "RS256"
)

type Config struct {
	Alg           string
	Secret        string
	PublicKeyPath string
	Issuer        string
	Audience      string
	ClockSkew     time.Duration
}

// Claims are the identity claims issued by the external provider.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
}

// Verifier checks bearer tokens issued by the identity provider.
type Verifier struct {
	method    jwt.SigningMethod
	key       any
	issuer    string
	audience  string
	clockSkew time.Duration
	clock     clockwork.Clock
}

func NewVerifier(cfg Config, clock clockwork.Clock) (*Verifier, error) {
	v := &Verifier{
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		clockSkew: cfg.ClockSkew,
		clock:     clock,
	}

	switch strings.ToUpper(cfg.Alg) {
	case AlgRS256:
		if cfg.PublicKeyPath == "" {
			return nil, ErrNoSigningKey
		}
		pub, err := LoadRSAPublicKeyFromPEM(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load public key: %w", err)
		}
		v.method, v.key = jwt.SigningMethodRS256, pub
	case AlgHS256, "":
		if cfg.Secret == "" {
			return nil, ErrNoSigningKey
		}
		v.method, v.key = jwt.SigningMethodHS256, []byte(cfg.Secret)
	default:
		return nil, fmt.Errorf("unsupported jwt alg %q", cfg.Alg)
	}
	return v, nil
}

// Verify validates tokenStr and returns the identity it names.
func (v *Verifier) Verify(tokenStr string) (domain.Identity, error) {
	claims := &Claims{}
	// time claims are checked below against the injected clock
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, ErrInvalidToken
		}
		return v.key, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return domain.Identity{}, ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return domain.Identity{}, ErrInvalidIssuer
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return domain.Identity{}, ErrInvalidAudience
	}

	now := v.clock.Now()
	if claims.NotBefore != 0 && now.Before(time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)) {
		return domain.Identity{}, ErrTokenExpired
	}
	if claims.ExpiresAt != 0 && now.After(time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)) {
		return domain.Identity{}, ErrTokenExpired
	}

	if strings.TrimSpace(claims.Subject) == "" || claims.Subject == domain.GuestID {
		return domain.Identity{}, ErrInvalidSubject
	}
	return domain.Identity{UserID: claims.Subject, Name: claims.Name}, nil
}

// SignHS256 issues a development token. Production tokens come from the
// identity provider.
func SignHS256(secret string, cfg Config, userID, name string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSigningKey
	}
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			IssuedAt:  now.Unix(),
			NotBefore: now.Add(-cfg.ClockSkew).Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		Name: name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("not RSA public key")
		}
		return rsaPub, nil
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}
