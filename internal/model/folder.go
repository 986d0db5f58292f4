package model

import "gorm.io/gorm"

type Folder struct {
	gorm.Model
	AccountID uint   `json:"account_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"not null"`
	Color     string `json:"color" gorm:"type:varchar(7)"`
	Path      string `json:"path" gorm:"not null"`
	IsSystem  bool   `json:"is_system" gorm:"default:false"`
}

// DefaultFolders are created for every new account.
func DefaultFolders(accountID uint) []Folder {
	defaults := []struct{ name, color string }{
		{"Документы", "#3B82F6"},
		{"Отчеты", "#10B981"},
		{"Контракты", "#F59E0B"},
		{"Презентации", "#8B5CF6"},
	}
	folders := make([]Folder, 0, len(defaults))
	for _, d := range defaults {
		folders = append(folders, Folder{
			AccountID: accountID,
			Name:      d.name,
			Color:     d.color,
			Path:      "/" + d.name,
			IsSystem:  true,
		})
	}
	return folders
}
