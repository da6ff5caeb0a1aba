package models

import "strings"

// Profile — профиль пользователя, принадлежит серверу, клиент только читает.
// Phone, BirthDate и Sex обязательны для "полного" профиля и могут быть null.
type Profile struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birth_date"`
	Sex       *string `json:"sex"`
}

// ProfileUpdate — частичное изменение профиля (PATCH /user/me).
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=8,max=20"`
	BirthDate *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Sex       *string `json:"sex,omitempty" validate:"omitempty,oneof=M F O"`
}

// FullName — имя для отображения.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
