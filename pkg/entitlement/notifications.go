package entitlement

import (
	"apexmind_backend/internal/model"
	"apexmind_backend/pkg/trial"
)

type Notice string

const (
	ThreeDaysLeft Notice = "THREE_DAYS_LEFT"
	LastDay       Notice = "LAST_DAY"
)

type Notices []Notice

func (n Notices) Contains(notice Notice) bool {
	for _, v := range n {
		if v == notice {
			return true
		}
	}
	return false
}

// DueNotifications reports which trial reminders are owed. It never touches
// the account; the dispatcher sets the flags once a reminder is claimed.
func DueNotifications(account *model.Account, state trial.State) Notices {
	due := Notices{}
	if !state.IsActive {
		return due
	}
	if state.DaysRemaining <= 3 && !account.TrialNotified3Days {
		due = append(due, ThreeDaysLeft)
	}
	if state.DaysRemaining <= 1 && !account.TrialNotifiedLastDay {
		due = append(due, LastDay)
	}
	return due
}
