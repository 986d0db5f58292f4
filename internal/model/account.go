package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"apexmind_backend/pkg/trial"
)

// ErrTrialImmutable is returned by the update hook when a write tries to move
// an account's trial window after signup.
var ErrTrialImmutable = errors.New("trial window is immutable")

type Account struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Name     string `json:"name" gorm:"not null"`
	Company  string `json:"company"`
	Slug     string `json:"slug" gorm:"uniqueIndex;not null"`

	Industry    string         `json:"industry"`
	Timezone    string         `json:"timezone" gorm:"default:'Europe/Moscow'"`
	Avatar      string         `json:"avatar"`
	Preferences datatypes.JSON `json:"preferences"`

	// Trial window, written once at signup
	TrialStartDate       time.Time `json:"trial_start_date" gorm:"not null"`
	TrialEndDate         time.Time `json:"trial_end_date" gorm:"not null;index"`
	TrialNotified3Days   bool      `json:"trial_notified_3_days" gorm:"column:trial_notified_3_days;not null;default:false"`
	TrialNotifiedLastDay bool      `json:"trial_notified_last_day" gorm:"column:trial_notified_last_day;not null;default:false"`

	Folders []Folder `json:"-"`
}

func (a *Account) TrialWindow() trial.Window {
	return trial.Window{Start: a.TrialStartDate, End: a.TrialEndDate}
}

// TrialWindowColumns are written once at signup and left out of every later
// account write.
var TrialWindowColumns = []string{"trial_start_date", "trial_end_date"}

// BeforeUpdate rejects Update/Updates calls that change the trial window.
// Statement.Changed cannot see changes made through Save on the model itself,
// so repository writes also omit TrialWindowColumns.
func (a *Account) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("TrialStartDate", "TrialEndDate") {
		return ErrTrialImmutable
	}
	return nil
}

func (a *Account) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":               a.ID,
		"email":            a.Email,
		"name":             a.Name,
		"company":          a.Company,
		"slug":             a.Slug,
		"industry":         a.Industry,
		"timezone":         a.Timezone,
		"avatar":           a.Avatar,
		"trial_start_date": a.TrialStartDate,
		"trial_end_date":   a.TrialEndDate,
		"created_at":       a.CreatedAt,
	}
}
