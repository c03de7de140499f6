package db

import "time"

type Wallet struct {
	UserID    string    `gorm:"primaryKey;size:64"`
	Balance   int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// LedgerEntry records one signed balance change; debits are negative.
type LedgerEntry struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"size:64;index;not null"`
	Amount    int       `gorm:"not null"`
	Reason    string    `gorm:"size:32;not null"`
	Reference string    `gorm:"size:36;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
