package bank

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTrackingIDFormat(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 5, 9, 123_000_000, time.UTC)
	id := GenerateTrackingID("ORG42", now)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 4)

	assert.Equal(t, "ORG42", parts[0])
	assert.Len(t, parts[1], trackingIDRandomLength)
	assert.Equal(t, "20260831140509123", parts[2])

	wantSum := 0
	for _, c := range parts[0] + parts[1] + parts[2] {
		wantSum += int(c)
	}
	sum, err := strconv.Atoi(parts[3])
	require.NoError(t, err)
	assert.Equal(t, wantSum, sum)
}

func TestGenerateTrackingIDIsUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateTrackingID("ORG", now)
		assert.False(t, seen[id], "duplicate tracking id %s", id)
		seen[id] = true
	}
}

func TestPersianTransactionDate(t *testing.T) {
	tests := []struct {
		gregorian time.Time
		want      int
	}{
		{time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC), 14030101},
		{time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC), 14050101},
		{time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC), 14050609},
		{time.Date(1979, 2, 11, 0, 0, 0, 0, time.UTC), 13571122},
	}
	for _, tt := range tests {
		t.Run(tt.gregorian.Format("2006-01-02"), func(t *testing.T) {
			assert.Equal(t, tt.want, persianTransactionDate(tt.gregorian))
		})
	}
}

func TestCanonicalStrings(t *testing.T) {
	assert.Equal(t,
		"POST#/GroupPayment/DoPayment#key-1#{\"TransactionId\":\"t\"}",
		canonicalString("POST", "/GroupPayment/DoPayment", "key-1", `{"TransactionId":"t"}`),
	)
	assert.Equal(t,
		"POST#/GroupPayment/GroupPaymentRegister#key-1#111-222#3#450000",
		registerCanonicalString("POST", "/GroupPayment/GroupPaymentRegister", "key-1", "111-222", 3, 450000),
	)
}

func TestParseGatewayMetadata(t *testing.T) {
	meta, err := parseGatewayMetadata(`{
		"clientName":"acme","clientId":"cid","clientSecret":"cs",
		"apiKey":"ak","customerNumber":"900","branchCode":"101",
		"organizationCode":"ORG1"
	}`)
	require.NoError(t, err)
	assert.Equal(t, "cid", meta.ClientID)
	assert.Equal(t, "ORG1", meta.OrganizationCode)

	_, err = parseGatewayMetadata("")
	assert.True(t, IsConfigurationError(err))

	_, err = parseGatewayMetadata(`{"clientId":"cid"}`)
	assert.True(t, IsConfigurationError(err), "missing secret and api key must fail")
}
