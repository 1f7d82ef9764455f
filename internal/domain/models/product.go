package models

import "time"

// Product — товар каталога с изменяемым остатком на складе.
type Product struct {
	ID           string
	Name         string
	Slug         string
	Category     string
	Image        string
	Price        float64
	CountInStock int
	CreatedAt    time.Time
}
