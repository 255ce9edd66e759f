package utils

import "github.com/google/uuid"

// NewID 主键统一用 UUID 字符串
func NewID() string { return uuid.NewString() }
