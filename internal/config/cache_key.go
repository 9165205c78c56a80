package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptSnapshotKey returns the single durable slot holding a student's
// in-progress attempt snapshot
func (r *CacheKeyStruct) AttemptSnapshotKey(studentID int) string {
	return fmt.Sprintf("student:%d:attempt_snapshot", studentID)
}

// TestPayloadKey returns the cache key for a test's catalog payload
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// ViolationChannel returns the Redis PubSub channel name for a test's
// live violation feed
func (r *CacheKeyStruct) ViolationChannel(testID string) string {
	return fmt.Sprintf("test:%s:violations", testID)
}

var CacheKey = NewCacheKeyStruct()
