package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/disgoorg/tradebot/tradebot/config"
)

// FormatNumber renders n with thousands separators: 1234567 -> "1,234,567".
func FormatNumber(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

func FormatCurrency(n int64) string {
	return FormatNumber(n) + " " + config.CurrencyName
}

// FormatCardName converts names like "hoot_taeyeon" to "Hoot Taeyeon"
func FormatCardName(name string) string {
	parts := strings.Split(name, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// GetStarsDisplay returns stars based on level (1-5)
func GetStarsDisplay(level int) string {
	if level < 1 || level > 5 {
		return "`✧`"
	}
	return fmt.Sprintf("`%s`", strings.Repeat("★", level))
}

// FormatDuration renders a countdown as "4m 30s" or "45s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
