package logger

import "fmt"

func sprintf(template string, args ...any) string {
	if len(args) == 0 {
		return template
	}

	return fmt.Sprintf(template, args...)
}

func sprint(args ...any) string {
	return fmt.Sprint(args...)
}
