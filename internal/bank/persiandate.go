package bank

import "time"

// persianTransactionDate renders t as a Solar Hijri calendar date in the
// yyyyMMdd integer form the register endpoint expects for each line item.
func persianTransactionDate(t time.Time) int {
	jy, jm, jd := toJalali(t.Year(), int(t.Month()), t.Day())
	return jy*10000 + jm*100 + jd
}

// toJalali converts a Gregorian date to the Jalali (Solar Hijri) calendar
// using the 33-year cycle arithmetic.
func toJalali(gy, gm, gd int) (int, int, int) {
	gdm := [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

	gy2 := gy - 1600
	days := 365*gy2 + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd - 1 + gdm[gm-1]
	if gm > 2 && isGregorianLeap(gy) {
		days++
	}
	days -= 79

	jy := 979 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}

	if days < 186 {
		return jy, 1 + days/31, 1 + days%31
	}
	return jy, 7 + (days-186)/30, 1 + (days-186)%30
}

func isGregorianLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
