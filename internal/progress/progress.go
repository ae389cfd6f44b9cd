// Package progress provides byte accounting and human-readable formatting
// for transfer logging.
package progress

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Reader counts the bytes read through it.
type Reader struct {
	r io.Reader
	n atomic.Int64
}

// NewReader wraps r with byte counting.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n.Add(int64(n))
	return n, err
}

// Count returns the number of bytes read so far.
func (r *Reader) Count() int64 {
	return r.n.Load()
}

// FormatBytes formats a byte count in binary units.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats a transfer rate in bytes per second.
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}

// FormatDuration rounds a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
