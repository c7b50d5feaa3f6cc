// Package erp provides the sales order client for a Business-Central-style
// OData surface. Authentication uses the OAuth2 client credentials flow;
// failures are classified transient or permanent so the posting gateway can
// decide whether to retry.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// firstLineNo and the step between lines follow the ERP's line numbering
// convention.
const (
	firstLineNo = 10000
	lineNoStep  = 10000
)

// Header carries the sales order header fields the core controls. System
// date fields are filled in by the client at submission time.
type Header struct {
	CustomerNo            string
	CustomerName          string
	ContactPerson         string
	RequestedDeliveryDate string
	ExternalDocumentNo    string
}

// LineItem is one sales order line.
type LineItem struct {
	ItemNo   string
	Quantity float64
}

// CreatedOrder is the ERP acknowledgment for a submitted order.
type CreatedOrder struct {
	Number string
}

// Client submits sales orders. The posting gateway is its only consumer.
type Client interface {
	CreateSalesOrder(ctx context.Context, header Header, lines []LineItem) (*CreatedOrder, error)
}

// Config holds ERP connection parameters.
type Config struct {
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	Scope          string
	RequestTimeout time.Duration
}

type client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an ERP client. The returned client lazily acquires and
// refreshes its access token through the client credentials token source.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("erp base url required")
	}

	httpClient := http.DefaultClient
	if cfg.TokenURL != "" {
		creds := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{cfg.Scope},
		}
		httpClient = creds.Client(context.Background())
	}

	return &client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		timeout: cfg.RequestTimeout,
		logger:  logger.With("system", "erp"),
	}, nil
}

// salesHeader mirrors the OData sales order header document.
type salesHeader struct {
	DocumentType          string `json:"Document_Type"`
	SellToCustomerNo      string `json:"Sell_to_Customer_No"`
	SellToCustomerName    string `json:"Sell_to_Customer_Name"`
	SellToContact         string `json:"Sell_to_Contact"`
	ExternalDocumentNo    string `json:"External_Document_No"`
	DocumentDate          string `json:"Document_Date"`
	PostingDate           string `json:"Posting_Date"`
	OrderDate             string `json:"Order_Date"`
	DueDate               string `json:"Due_Date"`
	RequestedDeliveryDate string `json:"Requested_Delivery_Date,omitempty"`
	Status                string `json:"Status"`
}

type salesLine struct {
	DocumentType string  `json:"Document_Type"`
	DocumentNo   string  `json:"Document_No"`
	LineNo       int     `json:"Line_No"`
	Type         string  `json:"Type"`
	No           string  `json:"No"`
	Quantity     float64 `json:"Quantity"`
	LocationCode string  `json:"Location_Code"`
}

// CreateSalesOrder submits the header, then each line in order. A line
// failure surfaces with its classification; the gateway records the partial
// submission as failed and relies on the ERP's duplicate external document
// check to keep a retried order from doubling.
func (c *client) CreateSalesOrder(ctx context.Context, header Header, lines []LineItem) (*CreatedOrder, error) {
	today := time.Now().UTC().Format("2006-01-02")
	dueDate := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")

	doc := salesHeader{
		DocumentType:       "Order",
		SellToCustomerNo:   header.CustomerNo,
		SellToCustomerName: header.CustomerName,
		SellToContact:      header.ContactPerson,
		ExternalDocumentNo: header.ExternalDocumentNo,
		DocumentDate:       today,
		PostingDate:        today,
		OrderDate:          today,
		DueDate:            dueDate,
		Status:             "Open",
	}
	if header.RequestedDeliveryDate != "" {
		doc.RequestedDeliveryDate = header.RequestedDeliveryDate
	}

	var created struct {
		No string `json:"No"`
	}
	if err := c.post(ctx, "/SalesOrder", doc, &created); err != nil {
		return nil, fmt.Errorf("create sales order header: %w", err)
	}
	if created.No == "" {
		return nil, &PermanentError{Payload: "erp response missing order number"}
	}

	lineNo := firstLineNo
	for _, line := range lines {
		body := salesLine{
			DocumentType: "Order",
			DocumentNo:   created.No,
			LineNo:       lineNo,
			Type:         "Item",
			No:           line.ItemNo,
			Quantity:     line.Quantity,
			LocationCode: "",
		}
		if err := c.post(ctx, "/SalesOrderSalesLines", body, nil); err != nil {
			return nil, fmt.Errorf("create line %d for order %s: %w", lineNo, created.No, err)
		}
		lineNo += lineNoStep
	}

	c.logger.Info("sales order created", "order_number", created.No, "lines", len(lines))
	return &CreatedOrder{Number: created.No}, nil
}

func (c *client) post(ctx context.Context, path string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyRequestErr(err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// classifyRequestErr maps transport-level failures. Token retrieval errors
// are authentication failures and therefore permanent; everything else at
// this level is connectivity and worth retrying.
func classifyRequestErr(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &PermanentError{
			Status:  retrieveErr.Response.StatusCode,
			Payload: string(retrieveErr.Body),
		}
	}

	if IsTransient(err) {
		return err
	}
	return &TransientError{Payload: err.Error()}
}
