package models

import "time"

// User представляет покупателя аптеки
type User struct {
	ID        int64
	Name      string
	Email     string
	Phone     string // контактный телефон для уведомлений, может быть пустым
	PassHash  []byte
	IsAdmin   bool
	CreatedAt time.Time
}
