package models

import (
	"time"
)

// Session is a logged-in mess manager, keyed in redis by its bearer token.
type Session struct {
	Token           string    `json:"token"`
	Manager         string    `json:"manager"`
	RequestCount    int       `json:"request_count"`
	LastRequestTime time.Time `json:"last_request_dttm_utc"`
	CreatedTime     time.Time `json:"created_dttm_utc"`
}
