package bank

import (
	"crypto/rand"
	"fmt"
	"time"
)

const trackingIDRandomLength = 32

const trackingIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTrackingID builds the bank-side transaction id:
// orgCode-<random32>-<yyyyMMddHHmmssmmm>-<asciiSum>. The trailing checksum is
// the sum of the character codes of orgCode+random+timestamp.
func GenerateTrackingID(orgCode string, now time.Time) string {
	randomStr := randomString(trackingIDRandomLength)
	timestamp := now.UTC().Format("20060102150405.000")
	// strip the fractional-second separator Format inserts
	timestamp = timestamp[:14] + timestamp[15:]

	sum := 0
	for _, c := range orgCode + randomStr + timestamp {
		sum += int(c)
	}

	return fmt.Sprintf("%s-%s-%s-%d", orgCode, randomStr, timestamp, sum)
}

func randomString(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = trackingIDAlphabet[int(b)%len(trackingIDAlphabet)]
	}
	return string(out)
}
