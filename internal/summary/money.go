package summary

import (
	"math"
	"strconv"
)

// FormatINR renders an amount in rupees with Indian digit grouping and no decimals:
// 1234567 becomes "₹12,34,567".
func FormatINR(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + "₹" + groupIndian(strconv.FormatInt(n, 10))
}

// groupIndian puts a comma before the last three digits and then after every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	out := make([]byte, 0, len(digits)+len(digits)/2)
	for i := 0; i < len(head); i++ {
		if i > 0 && (len(head)-i)%2 == 0 {
			out = append(out, ',')
		}
		out = append(out, head[i])
	}
	return string(out) + "," + tail
}
