package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "A_FAIRE"
	TaskStatusInProgress TaskStatus = "EN_COURS"
	TaskStatusDone       TaskStatus = "TERMINEE"
)

type Task struct {
	ID          uint       `gorm:"primaryKey"`
	Titre       string     `gorm:"size:150;not null"`
	Description string     `gorm:"size:500"`
	Status      TaskStatus `gorm:"size:20;not null;default:'A_FAIRE'"`
	UserID      *uint      `gorm:"index"` // utilisateur assigné
	User        *User
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
