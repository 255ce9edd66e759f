package auth

import (
	"regexp"
	"strings"
)

const (
	RoleSuperAdmin = "SUPER-ADMIN"
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RoleEmployee   = "EMPLOYEE"
)

// CoreRoles seed 时保证存在
var CoreRoles = []string{RoleSuperAdmin, RoleAdmin, RoleManager, RoleEmployee}

var roleNameRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,49}$`)

var roleSeparators = strings.NewReplacer(" ", "-", "_", "-")

// NormaliseRole 规范化角色名；空输入返回 ""
func NormaliseRole(v string) string {
	r := strings.TrimSpace(v)
	if r == "" {
		return ""
	}
	up := strings.ToUpper(r)
	if up == "SUPERADMIN" || up == "SUPER_ADMIN" {
		return RoleSuperAdmin
	}
	return strings.ToUpper(roleSeparators.Replace(r))
}

// NormaliseRoles 规范化 + 去空 + 去重（保持顺序）
func NormaliseRoles(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		n := NormaliseRole(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ValidRoleName 规范名的格式检查（大写字母数字 + 连字符）
func ValidRoleName(name string) bool {
	return roleNameRe.MatchString(name)
}

// HasAnyRole 两个角色集合是否有交集
func HasAnyRole(have []string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, r := range have {
		set[r] = struct{}{}
	}
	for _, r := range allowed {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
