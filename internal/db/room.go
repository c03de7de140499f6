package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID                uint           `gorm:"primaryKey"`
	Code              string         `gorm:"size:12;uniqueIndex;not null"`
	OwnerID           string         `gorm:"size:64;not null"`
	GameMode          string         `gorm:"size:8;not null;default:ffa"`
	Status            string         `gorm:"size:16;not null;index"`
	Phase             string         `gorm:"size:32;not null;default:none"`
	PhaseEndTime      *time.Time     `gorm:""`
	RemainingSeconds  int            `gorm:"not null;default:0"`
	CurrentRound      int            `gorm:"not null;default:0"`
	CurrentDrawerID   string         `gorm:"size:64"`
	CurrentWord       string         `gorm:"size:120"`
	WordOptions       datatypes.JSON `gorm:"type:jsonb"`
	DrawerPointer     int            `gorm:"not null;default:0"`
	DrawnUserIDs      datatypes.JSON `gorm:"type:jsonb"`
	TargetPoints      int            `gorm:"not null"`
	MaxPointsPerRound int            `gorm:"not null"`
	EntryPoints       int            `gorm:"not null;default:0"`
	DrawSeconds       int            `gorm:"not null"`
	MaxPlayers        int            `gorm:"not null;default:0"`
	ThemeID           uint           `gorm:"index"`
	Language          string         `gorm:"size:16"`
	Script            string         `gorm:"size:16"`
	VoiceEnabled      bool           `gorm:"not null;default:false"`
	CreatedAt         time.Time      `gorm:"not null"`
	UpdatedAt         time.Time      `gorm:"not null"`
	Participants      []Participant
	Events            []Event
}
