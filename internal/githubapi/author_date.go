package githubapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	authorDateFieldCountConstant      = 2
	timezoneOffsetLengthConstant      = 5
	secondsPerHourConstant            = 3600
	secondsPerMinuteConstant          = 60
	authorDateInvalidTemplateConstant = "unrecognized author date %q"
	negativeOffsetSignConstant        = '-'
	positiveOffsetSignConstant        = '+'
)

// ParseAuthorDate reads a git-style "<unix seconds> <+hhmm>" timestamp, as reported by
// CodeCommit, falling back to RFC 3339.
func ParseAuthorDate(value string) (time.Time, error) {
	trimmedValue := strings.TrimSpace(value)
	fields := strings.Fields(trimmedValue)
	if len(fields) == authorDateFieldCountConstant {
		seconds, secondsError := strconv.ParseInt(fields[0], 10, 64)
		location, locationError := parseTimezoneOffset(fields[1])
		if secondsError == nil && locationError == nil {
			return time.Unix(seconds, 0).In(location), nil
		}
	}

	parsedTime, parseError := time.Parse(time.RFC3339, trimmedValue)
	if parseError != nil {
		return time.Time{}, fmt.Errorf(authorDateInvalidTemplateConstant, value)
	}
	return parsedTime, nil
}

func parseTimezoneOffset(offset string) (*time.Location, error) {
	if len(offset) != timezoneOffsetLengthConstant {
		return nil, fmt.Errorf(authorDateInvalidTemplateConstant, offset)
	}

	sign := 1
	switch offset[0] {
	case negativeOffsetSignConstant:
		sign = -1
	case positiveOffsetSignConstant:
	default:
		return nil, fmt.Errorf(authorDateInvalidTemplateConstant, offset)
	}

	hours, hoursError := strconv.Atoi(offset[1:3])
	minutes, minutesError := strconv.Atoi(offset[3:5])
	if hoursError != nil || minutesError != nil {
		return nil, fmt.Errorf(authorDateInvalidTemplateConstant, offset)
	}

	offsetSeconds := sign * (hours*secondsPerHourConstant + minutes*secondsPerMinuteConstant)
	return time.FixedZone(offset, offsetSeconds), nil
}
