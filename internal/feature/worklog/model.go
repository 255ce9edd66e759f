package worklog

import "time"

// Attendance 单日考勤；employee_id 为业务工号，不关联用户主键
type Attendance struct {
	ID         string  `gorm:"primaryKey;size:36" json:"id"`
	EmployeeID string  `gorm:"size:50;not null;index" json:"employee_id"`
	Date       string  `gorm:"size:20;not null" json:"date"`
	InTime     *string `gorm:"size:10" json:"in_time"`
	OutTime    *string `gorm:"size:10" json:"out_time"`
}

func (Attendance) TableName() string { return "attendance_logs" }

type Project struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectName      string    `gorm:"size:255;not null;index" json:"project_name"`
	TotalEstimateHrs float64   `gorm:"not null;default:0" json:"total_estimate_hrs"`
	TotalElapsedHrs  float64   `gorm:"not null;default:0" json:"total_elapsed_hrs"`
	IsCompleted      bool      `gorm:"not null;default:false" json:"is_completed"`
	CreatedBy        string    `gorm:"size:36;not null;index" json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// WorkEntry 每日工时；归属当前登录用户
type WorkEntry struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"size:36;not null;index" json:"user_id"`
	WorkDate       string    `gorm:"size:10;not null;index" json:"work_date"` // YYYY-MM-DD
	HoursElapsed   float64   `gorm:"not null" json:"hours_elapsed"`
	ProjectName    string    `gorm:"size:255;not null" json:"project_name"`
	ProjectSubpart string    `gorm:"size:255" json:"project_subpart"`
	IsDone         bool      `gorm:"not null;default:false" json:"is_done"`
	AssignedBy     *string   `gorm:"size:36" json:"assigned_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (WorkEntry) TableName() string { return "work_entries" }
