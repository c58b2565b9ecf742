package utils

import (
	"fmt"
	"strings"
)

// SplitArgs splits a raw argument string into argv entries, honoring single
// and double quotes and backslash escapes outside single quotes. Catalog
// records store arguments as one string; launchers need argv.
//
//	SplitArgs(`--profile "Kiosk User" --lang=en`) -> ["--profile", "Kiosk User", "--lang=en"]
func SplitArgs(raw string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune // 0 when outside quotes
		escaped bool
		started bool
	)

	for _, r := range raw {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			started = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("unterminated escape in arguments")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c-quote in arguments", quote)
	}
	if started {
		args = append(args, current.String())
	}

	return args, nil
}
