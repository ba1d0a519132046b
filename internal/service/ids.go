package service

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

func newID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func nowUnix() int64 {
	return time.Now().UnixMilli()
}
