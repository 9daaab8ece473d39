package bank_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/bank"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/config"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

const testAccessToken = "tok-test-1"

func testGatewayInfo(t *testing.T) domain.GatewayInfo {
	t.Helper()
	_, pemText := generateTestKey(t)
	return domain.GatewayInfo{
		AccountNumber: "111-222-333",
		PrivateKeyPEM: pemText,
		MetadataJSON: `{
			"clientName":"acme","clientId":"cid","clientSecret":"cs",
			"apiKey":"ak-1","customerNumber":"900123","branchCode":"101",
			"organizationCode":"ORG1"
		}`,
	}
}

func testOrder() *domain.PaymentOrder {
	return &domain.PaymentOrder{
		OrderID:     "ord-1",
		GatewayID:   "gw-1",
		Description: "august payroll",
		LineItems: []domain.LineItem{
			{RowNumber: 1, DestinationIBAN: strings.Repeat("1", 26), Amount: 100000, RecipientName: "Ali Ahmadi", ReasonCode: domain.ReasonSalaryDeposit},
			{RowNumber: 2, DestinationIBAN: strings.Repeat("2", 26), Amount: 200000, RecipientName: "Sara Karimi", ReasonCode: domain.ReasonSalaryDeposit},
		},
	}
}

// newTestClient starts an httptest server that answers the token exchange
// and delegates API calls to handler, then builds a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *bank.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.JSONEq(t, `{"branch_code":"101"}`, r.PostForm.Get("client_claims"))
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": testAccessToken,
			"token_type":   "Bearer",
			"expires_in":   300,
		})
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return bank.NewClient(config.BankConfig{
		BaseURL:        srv.URL,
		AccessTokenURL: srv.URL + "/token",
		APIVersion:     "2",
		ConnTimeout:    5 * time.Second,
	}, logger)
}

func TestRegisterSendsSignedRequest(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GroupPayment/GroupPaymentRegister", r.URL.Path)
		assert.Equal(t, "ak-1", r.Header.Get("ApiKey"))
		assert.Equal(t, testAccessToken, r.Header.Get("AccessToken"))
		assert.Equal(t, "2", r.Header.Get("Accept-Version"))
		assert.NotEmpty(t, r.Header.Get("Signature"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		json.NewEncoder(w).Encode(map[string]any{"IsSuccess": true, "RsCode": 0})
	})

	trackingID, err := client.Register(context.Background(), testOrder(), testGatewayInfo(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(trackingID, "ORG1-"))

	assert.Equal(t, trackingID, got["TransactionId"])
	assert.Equal(t, "900123", got["CustomerNumber"])
	assert.Equal(t, "111-222-333", got["SourceDeposit"])
	assert.Equal(t, true, got["AutoContinue"])

	items := got["DocumentItems"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "100000", first["Amount"])
	assert.Equal(t, "Ali Ahmadi", first["RecieverFullName"])
	assert.Equal(t, float64(1), first["CauseType"])
	assert.NotZero(t, first["TransactionDate"])
}

func TestRegisterBusinessFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"IsSuccess": false, "RsCode": 17, "Message": "duplicate transaction",
		})
	})

	_, err := client.Register(context.Background(), testOrder(), testGatewayInfo(t))
	var be *bank.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 17, be.Code)
	assert.False(t, bank.IsRetryableError(err))
}

func TestExecuteTransportFailureIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})

	err := client.Execute(context.Background(), "ORG1-track", testGatewayInfo(t))
	var te *bank.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.True(t, bank.IsRetryableError(err))
}

func TestCheckReadinessParsesResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GroupPayment/GroupPaymentInquiry", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"IsSuccess": true,
			"ResultData": map[string]any{
				"TransactionStatus": "READY",
				"RecordErrorsList": []map[string]any{
					{"Code": "R12", "Desc": "bad iban", "ParamPath": "DocumentItems[3]"},
				},
				"Result": map[string]any{
					"TransactionId": "ORG1-track",
					"State":         "READY",
					"LineCount":     "2",
					"TotalAmount":   "300000",
				},
			},
		})
	})

	res, err := client.CheckReadiness(context.Background(), "ORG1-track", testGatewayInfo(t))
	require.NoError(t, err)
	assert.Equal(t, bank.StateReady, res.State)
	assert.Equal(t, "READY", res.RawStatus)
	require.NotNil(t, res.Summary)
	assert.Equal(t, "300000", res.Summary.TotalAmount)
	require.Len(t, res.RecordErrors, 1)
	assert.Equal(t, "bad iban", res.RecordErrors[0].Description)
}

func TestInquireDetailsRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GroupPayment/GroupPaymentInquiryFromCore", r.URL.Path)

		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, float64(1), req["FirstIndex"])
		assert.Equal(t, float64(2), req["LastIndex"])

		json.NewEncoder(w).Encode(map[string]any{
			"IsSuccess": true,
			"ResultData": map[string]any{
				"Result": []map[string]any{
					{"LineNumber": 1, "Amount": 100000, "Status": "DONE", "RefrenceNumber": "ref-1", "TransactionType": "PAYA"},
					{"LineNumber": 2, "Amount": 200000, "Status": "FAILED", "ErrorDescription": "account closed"},
				},
			},
		})
	})

	first, last := 1, 2
	rows, err := client.InquireDetails(context.Background(), bank.DetailInquiry{
		TrackingID: "ORG1-track",
		FirstIndex: &first,
		LastIndex:  &last,
	}, testGatewayInfo(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].LineNumber)
	assert.Equal(t, "ref-1", rows[0].ReferenceNumber)
	assert.Equal(t, bank.MethodPaya, rows[0].PaymentMethod)
	assert.Equal(t, "FAILED", rows[1].RawStatus)
	assert.Equal(t, "account closed", rows[1].ErrorDescription)
}

func TestInquireDetailsSingleLine(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"IsSuccess": true,
			"ResultData": map[string]any{
				"SingleResult": map[string]any{
					"Amount": 100000, "Status": "DONE", "RefrenceNumber": "ref-9",
				},
			},
		})
	})

	line := 4
	rows, err := client.InquireDetails(context.Background(), bank.DetailInquiry{
		TrackingID: "ORG1-track",
		LineNumber: &line,
	}, testGatewayInfo(t))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].LineNumber)
	assert.Equal(t, "ref-9", rows[0].ReferenceNumber)
}

func TestDetailInquiryValidate(t *testing.T) {
	line, first, last := 1, 1, 2

	assert.NoError(t, bank.DetailInquiry{TrackingID: "t", LineNumber: &line}.Validate())
	assert.NoError(t, bank.DetailInquiry{TrackingID: "t", FirstIndex: &first, LastIndex: &last}.Validate())

	assert.Error(t, bank.DetailInquiry{TrackingID: "t"}.Validate(), "neither selector")
	assert.Error(t, bank.DetailInquiry{TrackingID: "t", LineNumber: &line, FirstIndex: &first, LastIndex: &last}.Validate(), "both selectors")
	assert.Error(t, bank.DetailInquiry{TrackingID: "t", FirstIndex: &first}.Validate(), "half a range")
	assert.Error(t, bank.DetailInquiry{LineNumber: &line}.Validate(), "no tracking id")
}

func TestTokenExchangeFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "invalid_client", "error_description": "unknown client",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := bank.NewClient(config.BankConfig{
		BaseURL:        srv.URL,
		AccessTokenURL: srv.URL + "/token",
		APIVersion:     "2",
		ConnTimeout:    5 * time.Second,
	}, logger)

	err := client.Execute(context.Background(), "ORG1-track", testGatewayInfo(t))
	var ae *bank.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Message, "unknown client")
}
