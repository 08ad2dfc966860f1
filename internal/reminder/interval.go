package reminder

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidInterval = errors.New("invalid reminder interval")

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
	month  = 30 * day
)

var intervalUnits = map[string]int64{
	"semana": week, "semanas": week, "week": week, "weeks": week,
	"mes": month, "meses": month, "mês": month, "month": month, "months": month,
	"dia": day, "dias": day, "day": day, "days": day,
	"hora": hour, "horas": hour, "hour": hour, "hours": hour,
	"minuto": minute, "minutos": minute, "minute": minute, "minutes": minute,
}

// maxIntervalSeconds keeps the interval representable as a time.Duration.
const maxIntervalSeconds = math.MaxInt64 / int64(time.Second)

// Longer alternatives first so "meses" is not cut to "mes".
var intervalPattern = regexp.MustCompile(`(?i)(\d+)\s*(semanas|semana|weeks|week|meses|mês|mes|months|month|dias|dia|days|day|horas|hora|hours|hour|minutos|minuto|minutes|minute)`)

// ParseInterval finds the first "<amount> <unit>" in text and returns it in
// seconds. Anything around the match is ignored.
func ParseInterval(text string) (int64, error) {
	m := intervalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrInvalidInterval
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidInterval
	}
	unit, ok := intervalUnits[strings.ToLower(m[2])]
	if !ok || n > maxIntervalSeconds/unit {
		return 0, ErrInvalidInterval
	}
	return n * unit, nil
}
