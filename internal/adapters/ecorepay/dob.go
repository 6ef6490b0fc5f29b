package ecorepay

import (
	"math/rand"
	"strings"
	"time"
)

// DOBPolicy returns a YYYYMMDD date of birth for a US customer who has none on file.
// Returning "" sends the sale without a DOB.
type DOBPolicy func(now time.Time) string

// SynthesizeDOB picks a uniformly random date between Jan 1 forty-seven years ago
// and Dec 31 eighteen years ago. The gateway rejects US sales without a DOB.
func SynthesizeDOB(now time.Time) string {
	return synthesizeDOB(now, rand.Int63n)
}

func synthesizeDOB(now time.Time, int64n func(int64) int64) string {
	loc := now.Location()
	minDate := time.Date(now.Year()-47, time.January, 1, 0, 0, 0, 0, loc)
	maxDate := time.Date(now.Year()-18, time.December, 31, 0, 0, 0, 0, loc)
	span := maxDate.Unix() - minDate.Unix()
	return time.Unix(minDate.Unix()+int64n(span+1), 0).In(loc).Format("20060102")
}

// NoDOB disables DOB synthesis
func NoDOB(time.Time) string { return "" }

// formatCustomerDOB turns a stored "YYYY-MM-DD hh:mm:ss" value into YYYYMMDD
func formatCustomerDOB(dob string) string {
	if len(dob) > 10 {
		dob = dob[:10]
	}
	return strings.ReplaceAll(dob, "-", "")
}
