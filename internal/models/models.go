/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleWebUser RoleName = "web_user"
)

// CanManageSchedules reports whether the role may create, update or delete
// schedules. Web users only read.
func (r RoleName) CanManageSchedules() bool {
	return r == RoleAdmin || r == RoleManager
}

// User represents an account known to the back office. Accounts are
// authenticated upstream; this service only consumes id and role.
type User struct {
	ID        string   `gorm:"type:uuid;primaryKey"`
	Name      string   `gorm:"type:varchar(255)"`
	Email     string   `gorm:"uniqueIndex"`
	Role      RoleName `gorm:"type:varchar(16)"`
	Active    bool     `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}

// Station is a broadcast outlet that schedules are booked against.
type Station struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"uniqueIndex"`
	Description string `gorm:"type:text"`
	Timezone    string `gorm:"type:varchar(32)"`
	Active      bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM.
func (Station) TableName() string {
	return "stations"
}

// AuditAction enumerates audited operations.
type AuditAction string

const (
	AuditActionScheduleCreate AuditAction = "schedule.create"
	AuditActionScheduleUpdate AuditAction = "schedule.update"
	AuditActionScheduleDelete AuditAction = "schedule.delete"
)

// AuditLog records who changed what, so retained soft-deleted rows have a
// trail to line up against.
type AuditLog struct {
	ID         string         `gorm:"type:uuid;primaryKey"`
	Timestamp  time.Time      `gorm:"index"`
	Action     AuditAction    `gorm:"type:varchar(64);index"`
	ActorID    *string        `gorm:"type:uuid;index"`
	StationID  *string        `gorm:"type:uuid;index"`
	ResourceID string         `gorm:"type:uuid"`
	Details    map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
