// Package bank implements the typed client for the Gardeshgari group-payment
// API: registration, execution, readiness inquiry and detailed inquiry, each
// wrapped with the access-token exchange and RSA request signing.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/config"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

const (
	endpointRegister        = "/GroupPayment/GroupPaymentRegister"
	endpointDoPayment       = "/GroupPayment/DoPayment"
	endpointInquiry         = "/GroupPayment/GroupPaymentInquiry"
	endpointInquiryFromCore = "/GroupPayment/GroupPaymentInquiryFromCore"
)

type Client struct {
	baseURL    string
	tokenURL   string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(cfg config.BankConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		tokenURL:   cfg.AccessTokenURL,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{Timeout: cfg.ConnTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Register submits a new batch to the bank and returns the generated
// tracking id. The tracking id is generated client-side from the gateway's
// organization code, so it is known even if the response is lost.
func (c *Client) Register(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) (string, error) {
	meta, err := parseGatewayMetadata(gw.MetadataJSON)
	if err != nil {
		return "", err
	}
	if meta.CustomerNumber == "" {
		return "", &ConfigurationError{Field: "metadata", Message: "customer number is missing"}
	}

	trackingID := GenerateTrackingID(meta.OrganizationCode, c.now())
	txnDate := persianTransactionDate(c.now())

	items := make([]documentItem, 0, len(order.LineItems))
	for _, line := range order.LineItems {
		items = append(items, documentItem{
			LineNumber:       line.RowNumber,
			Amount:           strconv.FormatInt(line.Amount, 10),
			DestinationIban:  line.DestinationIBAN,
			TransactionDate:  txnDate,
			RecieverFullName: line.RecipientName,
			Description:      line.Description,
			CauseType:        line.ReasonCode.CauseType(),
		})
	}

	reqBody := registerRequest{
		TransactionID:           trackingID,
		AutoContinue:            true,
		CustomerNumber:          meta.CustomerNumber,
		SourceDeposit:           gw.AccountNumber,
		RefundDeposit:           gw.AccountNumber,
		SourceDepositCommission: gw.AccountNumber,
		SourceDescription:       order.Description,
		DocumentItems:           items,
	}

	// The register endpoint signs account, line count and total amount
	// instead of the full body.
	canonical := registerCanonicalString(
		http.MethodPost, endpointRegister, meta.APIKey,
		gw.AccountNumber, len(items), order.TotalAmount(),
	)

	var resp baseResponse
	if err := c.send(ctx, endpointRegister, reqBody, canonical, gw, meta, &resp); err != nil {
		return "", err
	}
	if !resp.IsSuccess {
		return "", &BusinessError{Code: resp.RsCode, Message: resp.Message}
	}

	c.logger.Info("group payment registered",
		"order_id", order.OrderID,
		"tracking_id", trackingID,
		"line_count", len(items),
	)
	return trackingID, nil
}

// Execute triggers fund movement for a ready batch. The bank provides no
// idempotency for this call; the workflow is solely responsible for never
// invoking it again once it has succeeded for a tracking id.
func (c *Client) Execute(ctx context.Context, trackingID string, gw domain.GatewayInfo) error {
	meta, err := parseGatewayMetadata(gw.MetadataJSON)
	if err != nil {
		return err
	}

	reqBody := doPaymentRequest{TransactionID: trackingID}

	var resp baseResponse
	if err := c.send(ctx, endpointDoPayment, reqBody, "", gw, meta, &resp); err != nil {
		return err
	}
	if !resp.IsSuccess {
		return &BusinessError{Code: resp.RsCode, Message: resp.Message}
	}

	c.logger.Info("group payment executed", "tracking_id", trackingID)
	return nil
}

// CheckReadiness polls the coarse order-level status. Read-only and safe to
// retry at any frequency.
func (c *Client) CheckReadiness(ctx context.Context, trackingID string, gw domain.GatewayInfo) (*ReadinessResult, error) {
	meta, err := parseGatewayMetadata(gw.MetadataJSON)
	if err != nil {
		return nil, err
	}

	reqBody := inquiryRequest{TransactionID: trackingID}

	var resp readinessResponse
	if err := c.send(ctx, endpointInquiry, reqBody, "", gw, meta, &resp); err != nil {
		return nil, err
	}
	if !resp.IsSuccess {
		return nil, &BusinessError{Code: resp.RsCode, Message: resp.Message}
	}

	result := &ReadinessResult{}
	if resp.ResultData != nil {
		result.RawStatus = resp.ResultData.TransactionStatus
		for _, re := range resp.ResultData.RecordErrorsList {
			result.RecordErrors = append(result.RecordErrors, RecordError{
				Code:        re.Code,
				Description: re.Desc,
				ParamName:   re.ParamName,
				ParamPath:   re.ParamPath,
			})
		}
		if s := resp.ResultData.Result; s != nil {
			result.Summary = &PaymentSummary{
				TransactionID:       s.TransactionID,
				CustomerNumber:      s.CustomerNumber,
				State:               s.State,
				LineCount:           s.LineCount,
				TotalAmount:         s.TotalAmount,
				TotalInternalAmount: s.TotalInternalAmount,
				TotalPayaAmount:     s.TotalPayaAmount,
				TotalSatnaAmount:    s.TotalSatnaAmount,
				SourceDeposit:       s.SourceDeposit,
				RefundDeposit:       s.RefundDeposit,
			}
		}
	}
	result.State = ParseState(result.RawStatus)

	return result, nil
}

// DetailInquiry selects the rows a detailed inquiry covers: exactly one of a
// single line number or a first/last index range.
type DetailInquiry struct {
	TrackingID string
	LineNumber *int
	FirstIndex *int
	LastIndex  *int
}

// Validate enforces the one-of constraint the endpoint imposes.
func (d DetailInquiry) Validate() error {
	if d.TrackingID == "" {
		return domain.NewValidationError("tracking id is required for detail inquiry")
	}
	hasLine := d.LineNumber != nil
	hasRange := d.FirstIndex != nil && d.LastIndex != nil
	if hasLine == hasRange {
		return domain.NewValidationError("detail inquiry requires exactly one of line number or index range")
	}
	if d.FirstIndex != nil != (d.LastIndex != nil) {
		return domain.NewValidationError("detail inquiry range requires both first and last index")
	}
	return nil
}

// InquireDetails fetches per-line outcomes after execution. Read-only and
// safe to retry.
func (c *Client) InquireDetails(ctx context.Context, inq DetailInquiry, gw domain.GatewayInfo) ([]LineResult, error) {
	if err := inq.Validate(); err != nil {
		return nil, err
	}
	meta, err := parseGatewayMetadata(gw.MetadataJSON)
	if err != nil {
		return nil, err
	}

	reqBody := inquiryRequest{
		TransactionID: inq.TrackingID,
		LineNumber:    inq.LineNumber,
		FirstIndex:    inq.FirstIndex,
		LastIndex:     inq.LastIndex,
	}

	var resp detailInquiryResponse
	if err := c.send(ctx, endpointInquiryFromCore, reqBody, "", gw, meta, &resp); err != nil {
		return nil, err
	}
	if !resp.IsSuccess {
		return nil, &BusinessError{Code: resp.RsCode, Message: resp.Message}
	}

	if resp.ResultData == nil {
		return nil, nil
	}

	var results []LineResult
	if inq.LineNumber != nil && resp.ResultData.SingleResult != nil {
		results = append(results, mapLineDetail(*resp.ResultData.SingleResult, *inq.LineNumber))
		return results, nil
	}

	first := 1
	if inq.FirstIndex != nil {
		first = *inq.FirstIndex
	}
	for i, row := range resp.ResultData.Result {
		lineNumber := first + i
		if n, err := row.LineNumber.Int64(); err == nil && n > 0 {
			lineNumber = int(n)
		}
		results = append(results, mapLineDetail(row, lineNumber))
	}
	return results, nil
}

func mapLineDetail(row lineDetailResponse, lineNumber int) LineResult {
	return LineResult{
		LineNumber:          lineNumber,
		Amount:              row.Amount,
		RawStatus:           row.Status,
		FinalState:          row.FinalState,
		FinalMessage:        row.FinalMessage,
		TransactionType:     row.TransactionType,
		PaymentMethod:       ParsePaymentMethod(row.TransactionType),
		ReferenceNumber:     row.RefrenceNumber,
		DestinationBankCode: row.DestinationBankCode,
		DestinationBankName: row.DestinationBankName,
		Commission:          row.TransactionCommission,
		ErrorDescription:    row.ErrorDescription,
	}
}

// send performs one signed, authenticated POST and decodes the body into
// out. canonicalOverride replaces the generic METHOD#path#apiKey#body signing
// payload for endpoints with a narrower signing surface.
func (c *Client) send(ctx context.Context, path string, reqBody any, canonicalOverride string, gw domain.GatewayInfo, meta *GatewayMetadata, out any) error {
	token, err := c.FetchAccessToken(ctx, meta.ClientID, meta.ClientSecret, meta.BranchCode)
	if err != nil {
		return err
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &TransportError{Message: fmt.Sprintf("marshal request: %v", err), Err: err}
	}

	canonical := canonicalOverride
	if canonical == "" {
		canonical = canonicalString(http.MethodPost, path, meta.APIKey, string(body))
	}
	signature, err := SignRequest(canonical, gw.PrivateKeyPEM)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("ApiKey", meta.APIKey)
	req.Header.Set("Signature", signature)
	req.Header.Set("Accept-Version", c.apiVersion)
	req.Header.Set("AccessToken", token.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Message: fmt.Sprintf("call %s: %v", path, err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response from %s: %v", path, err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failed baseResponse
		msg := string(respBody)
		if err := json.Unmarshal(respBody, &failed); err == nil && failed.Message != "" {
			msg = fmt.Sprintf("%s (rs code %d)", failed.Message, failed.RsCode)
		}
		c.logger.Error("bank call failed",
			"path", path,
			"status", resp.StatusCode,
			"message", msg,
		)
		return &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response from %s: %v", path, err), Err: err}
	}
	return nil
}
