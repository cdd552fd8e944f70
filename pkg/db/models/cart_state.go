package models

import "time"

// CartState stores the serialized cart record under its namespaced key.
type CartState struct {
	Key       string    `gorm:"column:state_key;primaryKey"`
	Payload   []byte    `gorm:"column:payload;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartState) TableName() string {
	return "cart_states"
}
