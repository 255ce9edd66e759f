// Package worklog 考勤 / 项目 / 每日工时，基于 ez.Crud 挂载
package worklog

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrms-backend/internal/transport/http/ez"
)

// MaxDailyHours 单条工时上限
const MaxDailyHours = 8

const dateLayout = "2006-01-02"

type Module struct {
	db         *gorm.DB
	log        *zap.Logger
	writeRoles []string
	now        func() time.Time
}

// New writeRoles 限定考勤写入角色（为空则任何登录用户可写）
func New(db *gorm.DB, l *zap.Logger, writeRoles []string) *Module {
	if l == nil {
		l = zap.NewNop()
	}
	return &Module{db: db, log: l, writeRoles: writeRoles, now: time.Now}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Attendance{}, &Project{}, &WorkEntry{})
}

func (m *Module) Priority() int { return 50 }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	ez.Crud(ez.CrudConfig[Attendance]{
		DB:         m.db,
		Group:      g,
		Path:       "/attendance",
		New:        func() *Attendance { return &Attendance{} },
		Log:        m.log,
		NoOwner:    true,
		WriteRoles: m.writeRoles,
		OrderBy:    "date DESC",
		Hooks: ez.CrudHooks[Attendance]{
			BeforeCreate: func(_ *gin.Context, a *Attendance) error { return validateAttendance(a, true) },
			BeforeUpdate: func(_ *gin.Context, a *Attendance) error { return validateAttendance(a, false) },
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if emp := strings.TrimSpace(c.Query("employee_id")); emp != "" {
					q = q.Where("employee_id = ?", emp)
				}
				return q
			},
		},
	})

	ez.Crud(ez.CrudConfig[Project]{
		DB:         m.db,
		Group:      g,
		Path:       "/projects",
		New:        func() *Project { return &Project{} },
		Log:        m.log,
		OwnerField: "CreatedBy",
		OrderBy:    "created_at DESC",
		Hooks: ez.CrudHooks[Project]{
			BeforeCreate: func(_ *gin.Context, p *Project) error {
				p.ProjectName = strings.TrimSpace(p.ProjectName)
				if p.ProjectName == "" {
					return errors.New("project_name is required")
				}
				if p.TotalEstimateHrs < 0 {
					return errors.New("total_estimate_hrs cannot be negative")
				}
				// 累计工时只由工时记录维护
				p.TotalElapsedHrs = 0
				return nil
			},
			BeforeUpdate: func(_ *gin.Context, p *Project) error {
				p.ProjectName = strings.TrimSpace(p.ProjectName)
				p.TotalElapsedHrs = 0
				if p.TotalEstimateHrs < 0 {
					return errors.New("total_estimate_hrs cannot be negative")
				}
				return nil
			},
		},
	})

	ez.Crud(ez.CrudConfig[WorkEntry]{
		DB:      m.db,
		Group:   g,
		Path:    "/work-entries",
		New:     func() *WorkEntry { return &WorkEntry{} },
		Log:     m.log,
		OrderBy: "work_date DESC",
		Hooks: ez.CrudHooks[WorkEntry]{
			BeforeCreate: func(_ *gin.Context, w *WorkEntry) error { return m.prepareEntry(w, true) },
			BeforeUpdate: func(_ *gin.Context, w *WorkEntry) error { return m.prepareEntry(w, false) },
			AfterCreate: func(_ *gin.Context, tx *gorm.DB, w *WorkEntry) error {
				return addProjectHours(tx, w.ProjectName, w.HoursElapsed)
			},
			AfterUpdate: func(_ *gin.Context, tx *gorm.DB, old, cur *WorkEntry) error {
				return moveProjectHours(tx, old, cur)
			},
			AfterDelete: func(_ *gin.Context, tx *gorm.DB, old *WorkEntry) error {
				return addProjectHours(tx, old.ProjectName, -old.HoursElapsed)
			},
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if d := strings.TrimSpace(c.Query("work_date")); d != "" {
					q = q.Where("work_date = ?", d)
				}
				return q
			},
		},
	})
}

func validateAttendance(a *Attendance, create bool) error {
	a.EmployeeID = strings.TrimSpace(a.EmployeeID)
	a.Date = strings.TrimSpace(a.Date)
	if create && (a.EmployeeID == "" || a.Date == "") {
		return errors.New("employee_id and date are required")
	}
	return nil
}

// prepareEntry 校验工时 (0, 8]；create 时缺省日期为今天
func (m *Module) prepareEntry(w *WorkEntry, create bool) error {
	// update 时 0 表示不修改（Updates 会跳过零值）
	if create || w.HoursElapsed != 0 {
		if w.HoursElapsed <= 0 || w.HoursElapsed > MaxDailyHours {
			return errors.New("hours_elapsed must be greater than 0 and at most 8")
		}
	}
	w.WorkDate = strings.TrimSpace(w.WorkDate)
	switch {
	case w.WorkDate != "":
		if _, err := time.Parse(dateLayout, w.WorkDate); err != nil {
			return errors.New("invalid work_date format, expected YYYY-MM-DD")
		}
	case create:
		w.WorkDate = m.now().Format(dateLayout)
	}
	w.ProjectName = strings.TrimSpace(w.ProjectName)
	if create && w.ProjectName == "" {
		return errors.New("project_name is required")
	}
	return nil
}

// addProjectHours 同名项目累加已用工时；项目不存在时忽略
func addProjectHours(tx *gorm.DB, project string, delta float64) error {
	if delta == 0 || project == "" {
		return nil
	}
	return tx.Model(&Project{}).
		Where("project_name = ?", project).
		UpdateColumn("total_elapsed_hrs", gorm.Expr("total_elapsed_hrs + ?", delta)).Error
}

// moveProjectHours 更新后按 新 - 旧 调整；换了项目则从旧项目扣回、给新项目加上
func moveProjectHours(tx *gorm.DB, old, cur *WorkEntry) error {
	if old.ProjectName == cur.ProjectName {
		return addProjectHours(tx, cur.ProjectName, cur.HoursElapsed-old.HoursElapsed)
	}
	if err := addProjectHours(tx, old.ProjectName, -old.HoursElapsed); err != nil {
		return err
	}
	return addProjectHours(tx, cur.ProjectName, cur.HoursElapsed)
}
