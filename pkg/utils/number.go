package utils

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var millifySuffixes = []string{"", "K", "M", "B", "T"}

func RoundWithTwoDecimalPlace(f float64) float64 {
	if f == 0 {
		return 0
	}

	return math.Round(f*100) / 100
}

// SafeDivide retorna 0 quando o denominador é zero
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// Millify abrevia um número com sufixos K/M/B/T (ex: 1234567 -> 1.23M)
func Millify(value float64, precision int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0"
	}

	abs := math.Abs(value)
	idx := 0
	for abs >= 1000 && idx < len(millifySuffixes)-1 {
		abs /= 1000
		idx++
	}

	pow := math.Pow(10, float64(precision))
	abs = math.Round(abs*pow) / pow
	// arredondamento pode levar 999.999K para 1000K
	if abs >= 1000 && idx < len(millifySuffixes)-1 {
		abs /= 1000
		idx++
	}

	if value < 0 && abs != 0 {
		abs = -abs
	}

	return printer().Sprint(number.Decimal(abs, number.MaxFractionDigits(precision))) + millifySuffixes[idx]
}

func FormatCurrency(value float64) string {
	return "$" + Millify(value, 2)
}

func FormatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

func FormatDays(value float64) string {
	return fmt.Sprintf("%.0f days", value)
}

// FormatCount formata inteiros com separador de milhar (ex: 8,800)
func FormatCount(value int) string {
	return printer().Sprintf("%d", value)
}

// printer não é seguro para uso concorrente, então cada chamada cria o seu
func printer() *message.Printer {
	return message.NewPrinter(language.English)
}
