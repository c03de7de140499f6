package db

import "time"

type Participant struct {
	ID                  uint      `gorm:"primaryKey"`
	RoomID              uint      `gorm:"index;not null;uniqueIndex:idx_participants_room_user"`
	UserID              string    `gorm:"size:64;not null;uniqueIndex:idx_participants_room_user"`
	DisplayName         string    `gorm:"size:64;not null"`
	Team                string    `gorm:"size:1"`
	Score               int       `gorm:"not null;default:0"`
	IsDrawer            bool      `gorm:"not null;default:false"`
	HasDrawn            bool      `gorm:"not null;default:false"`
	HasGuessedThisRound bool      `gorm:"not null;default:false"`
	HasPaidEntry        bool      `gorm:"not null;default:false"`
	IsActive            bool      `gorm:"not null;default:true"`
	ConnectionID        string    `gorm:"size:64"`
	JoinedAt            time.Time `gorm:"not null"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}
