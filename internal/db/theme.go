package db

import "time"

type Theme struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:64;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Words     []ThemeWord
}

// ThemeWord is one drawable concept; its surface strings live in WordTranslation.
type ThemeWord struct {
	ID           uint      `gorm:"primaryKey"`
	ThemeID      uint      `gorm:"index;not null;uniqueIndex:idx_theme_words_theme_key"`
	Key          string    `gorm:"size:120;not null;uniqueIndex:idx_theme_words_theme_key"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Translations []WordTranslation
}

type WordTranslation struct {
	ID          uint      `gorm:"primaryKey"`
	ThemeWordID uint      `gorm:"index;not null;uniqueIndex:idx_word_translations_word_lang_script"`
	Language    string    `gorm:"size:16;not null;uniqueIndex:idx_word_translations_word_lang_script"`
	Script      string    `gorm:"size:16;not null;uniqueIndex:idx_word_translations_word_lang_script"`
	Text        string    `gorm:"size:120;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}
