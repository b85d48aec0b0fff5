package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadPiped reads all of f, trimmed. It refuses to block on a terminal and
// treats an empty regular file as empty input.
func ReadPiped(f *os.File) (string, error) {
	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("refusing to read from a terminal; pipe the input instead")
	}
	if stat.Mode().IsRegular() && stat.Size() == 0 {
		return "", nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
