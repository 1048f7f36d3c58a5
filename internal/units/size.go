// Package units formats byte counts for display.
package units

import "fmt"

var sizeSuffixes = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize formats a byte count with two decimals and a binary unit,
// e.g. 1536 -> "1.50KB". Negative values are clamped to zero.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	num := float64(bytes)
	for _, suffix := range sizeSuffixes {
		if num < 1024.0 {
			return fmt.Sprintf("%.2f%s", num, suffix)
		}
		num /= 1024.0
	}
	return fmt.Sprintf("%.2fPB", num)
}
