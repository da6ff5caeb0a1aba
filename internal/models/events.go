package models

import "time"

// Event — событие в ленте; логика событий и листов ожидания принадлежит серверу.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Venue     string    `json:"venue"`
	StartsAt  time.Time `json:"starts_at"`
	Capacity  int       `json:"capacity"`
	Available int       `json:"available"`
}

// SoldOut — мест нет, регистрация уходит в лист ожидания.
func (e Event) SoldOut() bool { return e.Available <= 0 }
