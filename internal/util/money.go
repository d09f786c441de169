package util

import "fmt"

// Pounds renders a pence amount as a plain decimal, e.g. 1250 -> "12.50".
func Pounds(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s%d.%02d", sign, pence/100, pence%100)
}
