package service

import "strings"

// BearerToken 取 "Bearer <token>"，scheme 不区分大小写；格式不对返回 ""
func BearerToken(header string) string {
	return schemeToken(header, "bearer")
}

// RefreshSources refresh token 的候选来源
type RefreshSources struct {
	Body          string
	Cookie        string
	Header        string // X-Refresh-Token
	Authorization string // "Refresh <token>"
}

// Pick 按 body → cookie → header → Authorization 的顺序取第一个非空值
func (s RefreshSources) Pick() string {
	for _, v := range []string{s.Body, s.Cookie, s.Header} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return schemeToken(s.Authorization, "refresh")
}

func schemeToken(header, scheme string) string {
	h := strings.TrimSpace(header)
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
