package domain

import "time"

// Employee 员工档案，与 users 一对一；employee_id / aadhar_no 全局唯一
type Employee struct {
	UserID       string    `gorm:"primaryKey;size:36" json:"-"`
	EmployeeID   string    `gorm:"column:employee_id;uniqueIndex;size:64;not null" json:"employee_id"`
	Phone        string    `gorm:"size:32;not null" json:"phone"`
	Address      string    `gorm:"size:255;not null" json:"address"`
	FathersName  string    `gorm:"size:120;not null" json:"fathers_name"`
	AadharNo     string    `gorm:"uniqueIndex;size:32;not null" json:"aadhar_no"`
	DateOfBirth  string    `gorm:"size:10;not null" json:"date_of_birth"`
	WorkPosition string    `gorm:"size:80;not null" json:"work_position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Employee) TableName() string { return "employees" }
