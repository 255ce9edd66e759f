package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	tests := []struct {
		name           string
		in, user, pass string
		want           string
	}{
		{
			name: "driver dsn untouched",
			in:   "root:pw@tcp(127.0.0.1:3306)/hrms?parseTime=true",
			want: "root:pw@tcp(127.0.0.1:3306)/hrms?parseTime=true",
		},
		{
			name: "url form with defaults",
			in:   "mysql://root:pw@db:3306/hrms",
			want: "root:pw@tcp(db:3306)/hrms?charset=utf8mb4&parseTime=true",
		},
		{
			name: "jdbc form with overrides",
			in:   "jdbc:mysql://db:3306/hrms?useSSL=false&serverTimezone=UTC",
			user: "app", pass: "secret",
			want: "app:secret@tcp(db:3306)/hrms?charset=utf8mb4&loc=UTC&parseTime=true&tls=false",
		},
		{name: "empty", in: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeMySQLDSN(tt.in, tt.user, tt.pass))
		})
	}
}

func TestNewGorm_SQLiteMemory(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)

	type sample struct {
		ID   uint
		Name string `gorm:"uniqueIndex"`
	}
	require.NoError(t, db.AutoMigrate(&sample{}))
	require.NoError(t, db.Create(&sample{Name: "a"}).Error)

	var n int64
	require.NoError(t, db.Model(&sample{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
