package tree

import (
	"regexp"
	"strconv"
)

var plainKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// keyPath appends an object key to a dotted path.
// Keys that are not identifiers are quoted: views[0]["my key"].
func keyPath(path, key string) string {
	if !plainKey.MatchString(key) {
		return path + "[" + strconv.Quote(key) + "]"
	}
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// displayPath returns "root" for the top-level value.
func displayPath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
