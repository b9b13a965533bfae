package templates

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var hundred = big.NewFloat(100)

// Fixed2 formats x with two decimals, rounding exact ties away from zero the
// way a browser's Number.toFixed(2) does. fmt's %.2f rounds ties to even, so
// 100.125 would print as 100.12 instead of 100.13.
func Fixed2(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'f', 2, 64)
	}
	neg := x < 0

	// 53 bits of mantissa times 100 plus a half fits easily in 128 bits, so
	// every step below is exact.
	f := new(big.Float).SetPrec(128).SetFloat64(math.Abs(x))
	f.Mul(f, hundred)
	f.Add(f, big.NewFloat(0.5))
	n, _ := f.Int(nil)

	digits := n.String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	out := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if neg {
		return "-" + out
	}
	return out
}

func hueStyle(hue float64) templ.SafeCSS {
	return templ.SafeCSS(fmt.Sprintf("background-color: hsl(%.4f, 100%%, 50%%);", hue))
}

func thresholdValue(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func tableURL(eventID, divisionID int) string {
	return fmt.Sprintf("/events/%d/divisions/%d/table", eventID, divisionID)
}
