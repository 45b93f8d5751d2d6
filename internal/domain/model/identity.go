package model

// Identity — пользователь, как его видит сервис: идентификатор (sub из JWT)
// и отображаемые атрибуты.
type Identity struct {
	ID    string
	Name  string
	Email string
}
