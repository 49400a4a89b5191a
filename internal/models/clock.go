package models

// ClockValidCutoff is a unix time in September 2020. A device clock reading
// earlier than this has not been synchronised yet.
const ClockValidCutoff int64 = 1_600_000_000

func ClockValid(nowUTC int64) bool {
	return nowUTC >= ClockValidCutoff
}
