package entity

import "time"

// DateOf normaliza un instante a la medianoche (UTC) de su fecha calendario local.
// Todas las comparaciones de vencimiento se hacen sobre este valor.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr normaliza un puntero a fecha; nil se conserva.
func DatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := DateOf(*t)
	return &d
}

// SameDate indica si dos instantes caen en la misma fecha calendario.
func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
