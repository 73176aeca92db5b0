//go:build !linux

package evdev

import "fmt"

func checkReadable(string) error {
	return nil
}

func deviceName(string) string {
	return ""
}

// CodeName formats a type/code pair numerically.
func CodeName(typ, code uint16) string {
	return fmt.Sprintf("0x%02x/0x%03x", typ, code)
}
