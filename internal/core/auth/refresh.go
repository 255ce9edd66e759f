package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// refreshEntropyBytes 48 字节 = 384 bit
const refreshEntropyBytes = 48

const DefaultRefreshTTL = 15 * 24 * time.Hour

// RefreshTokens 生成不透明 refresh token；库里只存 Digest
type RefreshTokens struct {
	TTL time.Duration
}

type IssuedRefresh struct {
	Raw    string // 只返回给客户端，绝不落库/打日志
	Digest string
}

func (r *RefreshTokens) Issue() (IssuedRefresh, error) {
	buf := make([]byte, refreshEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return IssuedRefresh{}, fmt.Errorf("generate refresh token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return IssuedRefresh{Raw: raw, Digest: DigestRefresh(raw)}, nil
}

// Expiry 以 UTC 计算过期时间
func (r *RefreshTokens) Expiry(now time.Time) time.Time {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	return now.UTC().Add(ttl)
}

// DigestRefresh SHA-256 hex，确定性，用作存储键
func DigestRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
