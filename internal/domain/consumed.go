package domain

import "time"

// ConsumedItem is a single logged food entry.
type ConsumedItem struct {
	ID     int64     `bson:"id" json:"id"`
	UserID int64     `bson:"user_id" json:"user_id"`
	Date   time.Time `bson:"date" json:"date"`
	Text   string    `bson:"text" json:"text"`
	Kcal   *float64  `bson:"kcal" json:"kcal,omitempty"`
}

// KcalValue returns the calorie value, treating an unspecified value as zero.
func (c ConsumedItem) KcalValue() float64 {
	if c.Kcal == nil {
		return 0
	}
	return *c.Kcal
}
