// internal/model/login_history.go
package model

import "time"

type LoginHistory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AccountID uint      `json:"account_id" gorm:"index;not null"`
	Device    string    `json:"device" gorm:"size:255"` // raw User-Agent
	IP        string    `json:"ip" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
