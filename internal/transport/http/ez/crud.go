package ez

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrms-backend/internal/core/auth"
	resp "hrms-backend/internal/transport/http/response"
	"hrms-backend/pkg/utils"
)

// Hook；After* 与写操作同一事务，返回错误整体回滚（*AErr 按其 Code 响应，其余 500）
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 自定义筛选/排序
	AfterCreate  func(c *gin.Context, tx *gorm.DB, m *T) error
	AfterUpdate  func(c *gin.Context, tx *gorm.DB, old, cur *T) error // cur 为更新后重读的整行
	AfterDelete  func(c *gin.Context, tx *gorm.DB, old *T) error
	AfterGet     func(c *gin.Context, m *T)
}

type CrudConfig[T any] struct {
	DB    *gorm.DB
	Group *gin.RouterGroup // 已鉴权分组（能拿 userId）
	Path  string
	New   func() *T
	Log   *zap.Logger

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	IDField    string // 默认 "ID"
	OwnerField string // 默认优先 "OwnerID"，其次 "UserID"/"UID"
	NoOwner    bool   // 不按当前用户隔离（共享数据）

	// WriteRoles 非空时 create/update/delete 需要命中其一
	WriteRoles []string

	AutoID bool          // 默认 true
	IDGen  func() string // 默认 utils.NewID

	// 列表排序（列名按模型字段自动转 snake_case），为空则按 ID DESC
	OrderBy string // 例如 "created_at DESC"
}

// 反射 & 工具
func (c *CrudConfig[T]) idFieldCandidates() []string {
	if c.IDField != "" {
		return []string{c.IDField, "ID", "Id"}
	}
	return []string{"ID", "Id"}
}

func (c *CrudConfig[T]) ownerFieldCandidates() []string {
	if c.OwnerField != "" {
		return []string{c.OwnerField, "OwnerID", "UserID", "UID"}
	}
	return []string{"OwnerID", "UserID", "UID"}
}

func getStringFieldPtr(obj any, candidates []string) (*string, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr {
		return nil, false
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	t := v.Type()
	// 按候选顺序匹配，OwnerField 显式指定时优先
	for _, cand := range candidates {
		f, ok := t.FieldByName(cand)
		if !ok || f.PkgPath != "" || len(f.Index) != 1 {
			continue
		}
		fv := v.Field(f.Index[0])
		if fv.Kind() == reflect.String && fv.CanSet() {
			return fv.Addr().Interface().(*string), true
		}
	}
	return nil, false
}

func readStringField(obj any, candidates []string) (string, bool) {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return "", false
	}
	return *p, true
}

func writeStringField(obj any, candidates []string, val string) bool {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return false
	}
	*p = val
	return true
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func toSnake(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(s[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CRUD 注册（无需模型实现任何接口）
func Crud[T any](cfg CrudConfig[T]) {
	// 默认放开所有操作
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	// 默认 AutoID/IDGen
	if !cfg.AutoID && cfg.IDGen == nil {
		cfg.AutoID = true
	}
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	writeRoles := auth.NormaliseRoles(cfg.WriteRoles)

	idFieldNames := cfg.idFieldCandidates()
	ownerFieldNames := cfg.ownerFieldCandidates()

	internal := func(c *gin.Context, op string, err error) {
		var ae *AErr
		if errors.As(err, &ae) && ae.Code != resp.CodeServerError {
			resp.Fail(c, ae.Code, ae.Error())
			return
		}
		cfg.Log.Error("crud failed", zap.String("path", cfg.Path), zap.String("op", op), zap.Error(err))
		resp.Fail(c, resp.CodeServerError, "internal error")
	}
	// 当前用户；未登录直接 401
	currentUser := func(c *gin.Context) (string, bool) {
		uid := c.GetString(KeyUserID)
		if uid == "" {
			resp.Fail(c, resp.CodeUnauthorized, "unauthenticated")
			return "", false
		}
		return uid, true
	}
	canWrite := func(c *gin.Context) bool {
		if len(writeRoles) == 0 || auth.HasAnyRole(c.GetStringSlice(KeyRoles), writeRoles) {
			return true
		}
		resp.Fail(c, resp.CodeForbidden, "forbidden")
		return false
	}
	// scoped 构造 where 条件：id + owner
	scoped := func(id, uid string) *T {
		filter := cfg.New()
		if id != "" {
			_ = writeStringField(filter, idFieldNames, id)
		}
		if !cfg.NoOwner {
			_ = writeStringField(filter, ownerFieldNames, uid)
		}
		return filter
	}

	// Create
	if cfg.AllowCreate {
		cfg.Group.POST(cfg.Path, func(c *gin.Context) {
			uid, ok := currentUser(c)
			if !ok || !canWrite(c) {
				return
			}
			m := cfg.New()
			if err := c.ShouldBindJSON(m); err != nil {
				resp.Fail(c, resp.CodeBadRequest, err.Error())
				return
			}
			// 自动生成 ID（若开启且为空）
			if cfg.AutoID {
				if id, ok := readStringField(m, idFieldNames); !ok {
					internal(c, "create", errNoField("id"))
					return
				} else if strings.TrimSpace(id) == "" {
					_ = writeStringField(m, idFieldNames, cfg.IDGen())
				}
			}
			// 写 Owner
			if !cfg.NoOwner && !writeStringField(m, ownerFieldNames, uid) {
				internal(c, "create", errNoField("owner"))
				return
			}

			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					resp.Fail(c, resp.CodeBadRequest, err.Error())
					return
				}
			}
			err := cfg.DB.WithContext(c).Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(m).Error; err != nil {
					return err
				}
				if cfg.Hooks.AfterCreate != nil {
					return cfg.Hooks.AfterCreate(c, tx, m)
				}
				return nil
			})
			if err != nil {
				internal(c, "create", err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(201, resp.OK(m))
		})
	}

	// List（我的 / 共享）
	if cfg.AllowList {
		cfg.Group.GET(cfg.Path, func(c *gin.Context) {
			uid, ok := currentUser(c)
			if !ok {
				return
			}
			page := atoiDefault(c.Query("page"), 1)
			size := atoiDefault(c.Query("size"), 20)
			if size > 100 {
				size = 100
			}
			offset := (page - 1) * size

			// 用结构体 Where 自动映射列名，避免手写 owner 列
			q := cfg.DB.WithContext(c).Model(cfg.New()).Where(scoped("", uid))
			if cfg.Hooks.ScopeList != nil {
				q = cfg.Hooks.ScopeList(c, q)
			}

			var total int64
			if err := q.Count(&total).Error; err != nil {
				internal(c, "count", err)
				return
			}

			var items []T
			// 动态排序：优先按配置 OrderBy，否则按 ID DESC
			if cfg.OrderBy != "" {
				q = q.Order(cfg.OrderBy)
			} else {
				idCol := toSnake(idFieldNames[0])
				if idCol == "" {
					idCol = "id"
				}
				q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: idCol}, Desc: true})
			}
			if err := q.Limit(size).Offset(offset).Find(&items).Error; err != nil {
				internal(c, "list", err)
				return
			}
			if items == nil {
				items = []T{}
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(200, resp.OK(gin.H{
				"list": items, "total": total, "page": page, "size": size,
			}))
		})
	}

	// Get
	if cfg.AllowGet {
		cfg.Group.GET(cfg.Path+"/:id", func(c *gin.Context) {
			uid, ok := currentUser(c)
			if !ok {
				return
			}
			m := cfg.New()
			if err := cfg.DB.WithContext(c).Where(scoped(c.Param("id"), uid)).First(m).Error; err != nil {
				resp.Fail(c, resp.CodeNotFound, "not found")
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(200, resp.OK(m))
		})
	}

	// Update
	if cfg.AllowUpdate {
		cfg.Group.PUT(cfg.Path+"/:id", func(c *gin.Context) {
			uid, ok := currentUser(c)
			if !ok || !canWrite(c) {
				return
			}
			id := c.Param("id")

			// 先确认归属，旧值留给 AfterUpdate
			check := scoped(id, uid)
			old := cfg.New()
			if err := cfg.DB.WithContext(c).Where(check).First(old).Error; err != nil {
				resp.Fail(c, resp.CodeNotFound, "not found")
				return
			}

			in := cfg.New()
			if err := c.ShouldBindJSON(in); err != nil {
				resp.Fail(c, resp.CodeBadRequest, err.Error())
				return
			}
			// 强制保持 ID/Owner
			_ = writeStringField(in, idFieldNames, id)
			if !cfg.NoOwner {
				_ = writeStringField(in, ownerFieldNames, uid)
			}

			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, in); err != nil {
					resp.Fail(c, resp.CodeBadRequest, err.Error())
					return
				}
			}
			err := cfg.DB.WithContext(c).Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(cfg.New()).Where(check).Updates(in).Error; err != nil {
					return err
				}
				if cfg.Hooks.AfterUpdate == nil {
					return nil
				}
				cur := cfg.New()
				if err := tx.Where(check).First(cur).Error; err != nil {
					return err
				}
				return cfg.Hooks.AfterUpdate(c, tx, old, cur)
			})
			if err != nil {
				internal(c, "update", err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, in)
			}
			c.JSON(200, resp.OK(gin.H{"id": id}))
		})
	}

	// Delete
	if cfg.AllowDelete {
		cfg.Group.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
			uid, ok := currentUser(c)
			if !ok || !canWrite(c) {
				return
			}
			id := c.Param("id")
			filter := scoped(id, uid)
			err := cfg.DB.WithContext(c).Transaction(func(tx *gorm.DB) error {
				old := cfg.New()
				if err := tx.Where(filter).First(old).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return NotFound("not found")
					}
					return err
				}
				res := tx.Where(filter).Delete(cfg.New())
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return NotFound("not found")
				}
				if cfg.Hooks.AfterDelete != nil {
					return cfg.Hooks.AfterDelete(c, tx, old)
				}
				return nil
			})
			if err != nil {
				internal(c, "delete", err)
				return
			}
			c.JSON(200, resp.OK(gin.H{"id": id}))
		})
	}
}

type errNoField string

func (e errNoField) Error() string { return string(e) + " field not found" }
