package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// APIModule 业务模块挂到已鉴权的 /api/v1 分组
type APIModule interface{ MountAPI(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry 每个 engine 持有一份，测试里可以反复构建 engine
type Registry struct {
	mu   sync.RWMutex
	mods []APIModule
}

func NewRegistry(mods ...APIModule) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

// Register 非 APIModule 返回 false
func (r *Registry) Register(mod any) bool {
	m, ok := mod.(APIModule)
	if !ok {
		return false
	}
	r.mu.Lock()
	r.mods = append(r.mods, m)
	r.mu.Unlock()
	return true
}

// MountAll 按 Priority 升序挂载
func (r *Registry) MountAll(api *gin.RouterGroup) {
	if r == nil {
		return
	}
	r.mu.RLock()
	mods := append([]APIModule(nil), r.mods...)
	r.mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(api)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
