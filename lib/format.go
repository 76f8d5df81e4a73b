package lib

import "fmt"

// FormatSize formats a byte count as a human-readable string.
func FormatSize(bytes int64) string {
	if bytes >= 1024*1024*1024 {
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
	} else if bytes >= 1024*1024 {
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	} else {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
}

// FormatBitrate formats bits per second as "12.3 Mbps" or "850 kbps".
func FormatBitrate(bps int64) string {
	if bps >= 1000000 {
		return fmt.Sprintf("%.1f Mbps", float64(bps)/1000000)
	}
	return fmt.Sprintf("%.0f kbps", float64(bps)/1000)
}

// FormatRatio formats a size ratio as a percentage, e.g. 0.953 -> "95.3%".
func FormatRatio(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
