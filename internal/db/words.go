package db

import (
	"encoding/csv"
	"os"
	"strings"

	"gorm.io/gorm"
)

type wordRecord struct {
	Theme    string
	Key      string
	Language string
	Script   string
	Text     string
}

// LoadWordLibrary reads theme,key,language,script,text rows from a CSV and upserts
// them into the theme tables. It returns the number of translations written.
func LoadWordLibrary(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	records, err := readWords(path)
	if err != nil {
		return 0, err
	}
	written := 0
	err = conn.Transaction(func(tx *gorm.DB) error {
		themes := make(map[string]uint)
		for _, record := range records {
			themeID, ok := themes[record.Theme]
			if !ok {
				theme := Theme{Name: record.Theme}
				if err := tx.FirstOrCreate(&theme, Theme{Name: record.Theme}).Error; err != nil {
					return err
				}
				themeID = theme.ID
				themes[record.Theme] = themeID
			}
			word := ThemeWord{ThemeID: themeID, Key: record.Key}
			if err := tx.FirstOrCreate(&word, ThemeWord{ThemeID: themeID, Key: record.Key}).Error; err != nil {
				return err
			}
			translation := WordTranslation{
				ThemeWordID: word.ID,
				Language:    record.Language,
				Script:      record.Script,
			}
			if err := tx.Where(translation).
				Assign(WordTranslation{Text: record.Text}).
				FirstOrCreate(&translation).Error; err != nil {
				return err
			}
			written++
		}
		return nil
	})
	return written, err
}

func readWords(path string) ([]wordRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []wordRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 5 {
			continue
		}
		record := wordRecord{
			Theme:    strings.TrimSpace(row[0]),
			Key:      strings.TrimSpace(row[1]),
			Language: strings.ToLower(strings.TrimSpace(row[2])),
			Script:   strings.ToLower(strings.TrimSpace(row[3])),
			Text:     strings.TrimSpace(row[4]),
		}
		if record.Theme == "" || record.Key == "" || record.Language == "" || record.Script == "" || record.Text == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
