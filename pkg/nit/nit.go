// Package nit normaliza y valida el NIT colombiano (número de identificación tributaria) con su
// dígito de verificación módulo 11.
package nit

import (
	"fmt"
	"strings"
	"unicode"
)

// pesos del dígito de verificación, aplicados de derecha a izquierda sobre la base del NIT.
var weights = [...]int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// CheckDigit calcula el dígito de verificación de la base (solo dígitos, sin DV).
func CheckDigit(base string) (byte, error) {
	if base == "" || len(base) > len(weights) {
		return 0, fmt.Errorf("nit: base de %d dígitos fuera de rango", len(base))
	}
	sum := 0
	for i := 0; i < len(base); i++ {
		d := base[len(base)-1-i]
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("nit: carácter no numérico %q", d)
		}
		sum += int(d-'0') * weights[i]
	}
	r := sum % 11
	if r > 1 {
		r = 11 - r
	}
	return byte('0' + r), nil
}

// IsNumeric indica si s tiene forma de NIT: dígitos con puntos, espacios y a lo sumo un guion.
// Identificadores de otros países (con letras) no lo son.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.Count(s, "-") > 1 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != '-' && r != ' ' {
			return false
		}
	}
	return true
}

// Normalize devuelve el NIT sin separadores de miles. "900.123.456-8" → "900123456-8".
// Si trae dígito de verificación (tras el guion) debe coincidir con el calculado;
// sin guion se devuelve solo la base.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	base, dv, hasDV := strings.Cut(s, "-")
	base = strings.NewReplacer(".", "", " ", "").Replace(base)
	dv = strings.TrimSpace(dv)
	if base == "" {
		return "", fmt.Errorf("nit: sin dígitos")
	}
	expected, err := CheckDigit(base)
	if err != nil {
		return "", err
	}
	if !hasDV {
		return base, nil
	}
	if len(dv) != 1 {
		return "", fmt.Errorf("nit: dígito de verificación %q inválido", dv)
	}
	if dv[0] != expected {
		return "", fmt.Errorf("nit: dígito de verificación inválido: esperado %c, recibido %s", expected, dv)
	}
	return base + "-" + dv, nil
}
