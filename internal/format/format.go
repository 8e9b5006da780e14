// Package format renders numbers for display.
package format

import (
	"strconv"
	"strings"
)

// INR formats whole rupees with Indian digit grouping: the last three digits,
// then groups of two. Example: INR(589999) => "₹5,89,999".
func INR(rupees int64) string {
	neg := rupees < 0
	if neg {
		rupees = -rupees
	}
	out := "₹" + indianGroup(strconv.FormatInt(rupees, 10))
	if neg {
		return "-" + out
	}
	return out
}

// Lakh formats an amount in lakh with up to two decimals, e.g. 650000 => "6.5 lakh".
func Lakh(rupees int64) string {
	v := strconv.FormatFloat(float64(rupees)/100000, 'f', 2, 64)
	v = strings.TrimRight(strings.TrimRight(v, "0"), ".")
	return v + " lakh"
}

func indianGroup(s string) string {
	if len(s) <= 3 {
		return s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, c := range head {
		if i != 0 && (len(head)-i)%2 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String() + "," + tail
}
