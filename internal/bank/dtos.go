package bank

import "encoding/json"

// GatewayMetadata is the bank-specific client configuration stored as a JSON
// blob on the gateway record. Field names follow the stored document.
type GatewayMetadata struct {
	ClientName       string `json:"clientName"`
	ClientID         string `json:"clientId"`
	ClientSecret     string `json:"clientSecret"`
	APIKey           string `json:"apiKey"`
	CustomerNumber   string `json:"customerNumber"`
	BranchCode       string `json:"branchCode"`
	OrganizationCode string `json:"organizationCode"`
}

// parseGatewayMetadata decodes and validates the credentials every bank call
// needs. Missing fields are configuration errors, not network errors.
func parseGatewayMetadata(blob string) (*GatewayMetadata, error) {
	if blob == "" {
		return nil, &ConfigurationError{Field: "metadata", Message: "gateway metadata is empty"}
	}
	var meta GatewayMetadata
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return nil, &ConfigurationError{Field: "metadata", Message: "gateway metadata is not valid JSON"}
	}
	if meta.ClientID == "" || meta.ClientSecret == "" {
		return nil, &ConfigurationError{Field: "metadata", Message: "client credentials are missing"}
	}
	if meta.APIKey == "" {
		return nil, &ConfigurationError{Field: "metadata", Message: "api key is missing"}
	}
	return &meta, nil
}

// Wire types. The bank serializes PascalCase property names; the misspelled
// RecieverFullName is the actual field on the wire.

type documentItem struct {
	LineNumber            int    `json:"LineNumber"`
	Amount                string `json:"Amount"`
	DestinationIban       string `json:"DestinationIban"`
	TransactionDate       int    `json:"TransactionDate"`
	RecieverFullName      string `json:"RecieverFullName"`
	Description           string `json:"Description"`
	TransactionBillNumber string `json:"TransactionBillNumber,omitempty"`
	CauseType             int    `json:"CauseType"`
}

type registerRequest struct {
	TransactionID           string         `json:"TransactionId"`
	AutoContinue            bool           `json:"AutoContinue"`
	CustomerNumber          string         `json:"CustomerNumber"`
	SourceDeposit           string         `json:"SourceDeposit"`
	RefundDeposit           string         `json:"RefundDeposit"`
	SourceDepositCommission string         `json:"SourceDepositCommission"`
	SourceDescription       string         `json:"SourceDescription,omitempty"`
	DocumentItems           []documentItem `json:"DocumentItems"`
}

type doPaymentRequest struct {
	TransactionID string `json:"TransactionId"`
}

type inquiryRequest struct {
	TransactionID string `json:"TransactionId"`
	LineNumber    *int   `json:"LineNumber,omitempty"`
	FirstIndex    *int   `json:"FirstIndex,omitempty"`
	LastIndex     *int   `json:"LastIndex,omitempty"`
}

type errorItem struct {
	Code      int    `json:"Code"`
	Desc      string `json:"Desc"`
	ParamName string `json:"ParamName"`
	ParamPath string `json:"ParamPath"`
}

type baseResponse struct {
	IsSuccess bool        `json:"IsSuccess"`
	RsCode    int         `json:"RsCode"`
	Message   string      `json:"Message"`
	ErrorList []errorItem `json:"ErrorList"`
}

type readinessSummary struct {
	TransactionID           string `json:"TransactionId"`
	DateTime                string `json:"DateTime"`
	CustomerNumber          string `json:"CustomerNumber"`
	State                   string `json:"State"`
	LineCount               string `json:"LineCount"`
	TotalAmount             string `json:"TotalAmount"`
	TotalInternalAmount     string `json:"TotalInternalAmount"`
	TotalPayaAmount         string `json:"TotalPayaAmount"`
	TotalSatnaAmount        string `json:"TotalSatnaAmount"`
	SourceDeposit           string `json:"SourceDeposit"`
	RefundDeposit           string `json:"RefundDeposit"`
	SourceDepositCommission string `json:"SourceDepositCommission"`
}

type recordErrorResponse struct {
	Code      string `json:"Code"`
	Desc      string `json:"Desc"`
	ParamName string `json:"ParamName"`
	ParamPath string `json:"ParamPath"`
}

type readinessResponse struct {
	baseResponse
	ResultData *struct {
		TransactionStatus string                `json:"TransactionStatus"`
		RecordErrorsList  []recordErrorResponse `json:"RecordErrorsList"`
		Result            *readinessSummary     `json:"Result"`
	} `json:"ResultData"`
}

type lineDetailResponse struct {
	LineNumber             json.Number `json:"LineNumber"`
	Amount                 int64       `json:"Amount"`
	FinalState             string      `json:"FinalState"`
	FinalMessage           string      `json:"FinalMessage"`
	Status                 string      `json:"Status"`
	TransactionType        string      `json:"TransactionType"`
	TransactionDate        string      `json:"TransactionDate"`
	TransactionDescription string      `json:"TransactionDescription"`
	RefrenceNumber         string      `json:"RefrenceNumber"`
	BranchCode             string      `json:"BranchCode"`
	DocumentNumber         string      `json:"DocumentNumber"`
	DestinationBankCode    string      `json:"DestinationBankCode"`
	DestinationBankName    string      `json:"DestinationBankName"`
	TransactionCommission  int64       `json:"TransactionCommission"`
	ErrorDescription       string      `json:"ErrorDescription"`
}

type detailInquiryResponse struct {
	baseResponse
	ResultData *struct {
		Result       []lineDetailResponse `json:"Result"`
		SingleResult *lineDetailResponse  `json:"SingleResult"`
	} `json:"ResultData"`
}

// Token endpoint payloads use standard OAuth snake_case.

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

type failedTokenResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exposed result types.

// PaymentSummary is the order-level aggregate the readiness inquiry returns.
type PaymentSummary struct {
	TransactionID       string
	CustomerNumber      string
	State               string
	LineCount           string
	TotalAmount         string
	TotalInternalAmount string
	TotalPayaAmount     string
	TotalSatnaAmount    string
	SourceDeposit       string
	RefundDeposit       string
}

// RecordError describes a per-record problem reported during registration
// processing.
type RecordError struct {
	Code        string
	Description string
	ParamName   string
	ParamPath   string
}

// ReadinessResult is the outcome of CheckReadiness.
type ReadinessResult struct {
	RawStatus    string
	State        State
	Summary      *PaymentSummary
	RecordErrors []RecordError
}

// LineResult is one row of a detailed inquiry.
type LineResult struct {
	LineNumber          int
	Amount              int64
	RawStatus           string
	FinalState          string
	FinalMessage        string
	TransactionType     string
	PaymentMethod       PaymentMethod
	ReferenceNumber     string
	DestinationBankCode string
	DestinationBankName string
	Commission          int64
	ErrorDescription    string
}

// PaymentMethod classifies the transfer rail the bank settled a row on.
type PaymentMethod string

const (
	MethodUnknown  PaymentMethod = "UNKNOWN"
	MethodInternal PaymentMethod = "INTERNAL"
	MethodPaya     PaymentMethod = "PAYA"
	MethodSatna    PaymentMethod = "SATNA"
	MethodCard     PaymentMethod = "CARD"
)

// ParsePaymentMethod maps the bank's transaction type to a transfer rail.
func ParsePaymentMethod(transactionType string) PaymentMethod {
	switch transactionType {
	case "INTERNAL":
		return MethodInternal
	case "PAYA":
		return MethodPaya
	case "SATNA":
		return MethodSatna
	case "CARD":
		return MethodCard
	default:
		return MethodUnknown
	}
}
