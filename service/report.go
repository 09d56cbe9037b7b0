package service

import "dialogos/model"

type ReportService struct {
}

// UsageReport logs the running totals. Wired to the daily cron schedule in
// main; the numbers land in the app log where the ops scripts pick them up.
func (service *ReportService) UsageReport() {
	users, err := model.CountUsers()
	if err != nil {
		logger.Errorf("Usage report: %s", err)
		return
	}
	conversations, err := model.CountConversations()
	if err != nil {
		logger.Errorf("Usage report: %s", err)
		return
	}
	messages, err := model.CountMessages()
	if err != nil {
		logger.Errorf("Usage report: %s", err)
		return
	}
	logger.Infof("Usage report: %d users, %d conversations, %d messages", users, conversations, messages)
}
