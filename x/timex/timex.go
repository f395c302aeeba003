package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// NowMs32 returns the free-running millisecond tick truncated to uint32,
// the width of the hardware counter used for all debounce timing. Wraps
// after ~49.7 days; compare only through Since32/Reached32.
func NowMs32() uint32 { return uint32(time.Now().UnixMilli()) }

// Since32 returns milliseconds elapsed between start and now.
// Unsigned subtraction keeps the result correct across counter wrap.
func Since32(now, start uint32) uint32 { return now - start }

// Reached32 reports whether now has reached or passed deadline.
// Wraparound-safe for deadlines within ±24.8 days of now.
func Reached32(now, deadline uint32) bool { return int32(now-deadline) >= 0 }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}
