package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionBySerialKey returns the cache key for a participant session lookup by serial.
func (r *CacheKeyStruct) SessionBySerialKey(serial string) string {
	return fmt.Sprintf("session:serial:%s", serial)
}

// LatestAuthorizedSessionKey returns the cache key for a participant's latest authorized session.
func (r *CacheKeyStruct) LatestAuthorizedSessionKey(participantID int64) string {
	return fmt.Sprintf("session:latest_authorized:participant:%d", participantID)
}

// ParticipantKey returns the cache key for a participant lookup by id.
func (r *CacheKeyStruct) ParticipantKey(participantID int64) string {
	return fmt.Sprintf("participant:%d", participantID)
}

// ParticipantByExamAndNameKey returns the cache key for a participant lookup by exam and name.
func (r *CacheKeyStruct) ParticipantByExamAndNameKey(examID int64, name string) string {
	return fmt.Sprintf("participant:exam:%d:name:%s", examID, name)
}

// ExamBySerialKey returns the cache key for an exam lookup by serial.
func (r *CacheKeyStruct) ExamBySerialKey(serial string) string {
	return fmt.Sprintf("exam:serial:%s", serial)
}

// ParticipantAnswersKey returns the key of the Redis hash mirroring a
// participant's saved answers (question id -> option id).
func (r *CacheKeyStruct) ParticipantAnswersKey(participantID int64) string {
	return fmt.Sprintf("participant:%d:answers", participantID)
}

// ExamMonitorChannel returns the Redis PubSub channel for an exam's proctor monitor.
func (r *CacheKeyStruct) ExamMonitorChannel(examSerial string) string {
	return fmt.Sprintf("exam:%s:monitor", examSerial)
}

var CacheKey = NewCacheKeyStruct()
