package domain

import "time"

// User represents a Telegram user registered with the bot.
type User struct {
	UserID         int64     `bson:"user_id" json:"user_id"`
	RegisterDate   time.Time `bson:"register_date" json:"register_date"`
	TimezoneOffset int       `bson:"timezone_offset" json:"timezone_offset"`
	MaxKcal        *float64  `bson:"max_kcal" json:"max_kcal,omitempty"`
}

// MaxTimezoneOffset is the largest offset in hours any real zone uses (UTC+14).
const MaxTimezoneOffset = 14
