package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"
)

const DefaultMercadoPagoURL = "https://api.mercadopago.com"

// MercadoPagoClient は MercadoPago の決済APIクライアント
type MercadoPagoClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewMercadoPagoClient は新しいクライアントを作成する
func NewMercadoPagoClient(baseURL, accessToken string, timeout time.Duration) *MercadoPagoClient {
	if baseURL == "" {
		baseURL = DefaultMercadoPagoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MercadoPagoClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type payerBody struct {
	Email string `json:"email"`
}

type redirectURLsBody struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type chargeBody struct {
	TransactionAmount json.Number      `json:"transaction_amount"`
	Description       string           `json:"description"`
	PaymentMethodID   string           `json:"payment_method_id"`
	ExternalReference string           `json:"external_reference"`
	Payer             payerBody        `json:"payer"`
	RedirectURLs      redirectURLsBody `json:"redirect_urls"`
	Token             string           `json:"token,omitempty"`
	Installments      int              `json:"installments,omitempty"`
}

type paymentReply struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// Charge は決済を作成する
func (c *MercadoPagoClient) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	body := chargeBody{
		TransactionAmount: formatAmount(req.Amount),
		Description:       req.Description,
		PaymentMethodID:   req.MethodID,
		ExternalReference: req.OrderID,
		Payer:             payerBody{Email: req.PayerEmail},
		RedirectURLs: redirectURLsBody{
			Success: withOrderID(req.RedirectURLs.Success, req.OrderID),
			Failure: withOrderID(req.RedirectURLs.Failure, req.OrderID),
			Pending: withOrderID(req.RedirectURLs.Pending, req.OrderID),
		},
	}
	if req.CardToken != "" {
		body.Token = req.CardToken
		body.Installments = req.Installments
	}

	key := req.IdempotencyKey
	if key == "" {
		key = req.OrderID
	}

	var reply paymentReply
	if err := c.do(ctx, http.MethodPost, "/v1/payments", key, body, &reply); err != nil {
		return nil, err
	}
	if reply.ID == "" || reply.Status == "" {
		return nil, payment.ErrUnexpectedReply
	}
	return &payment.ChargeResult{PaymentID: reply.ID.String(), Status: reply.Status}, nil
}

// GetPayment は決済の状態を取得する
func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*payment.PaymentInfo, error) {
	var reply paymentReply
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), "", nil, &reply); err != nil {
		return nil, err
	}
	if reply.Status == "" {
		return nil, payment.ErrUnexpectedReply
	}
	return &payment.PaymentInfo{
		PaymentID:         reply.ID.String(),
		Status:            reply.Status,
		ExternalReference: reply.ExternalReference,
	}, nil
}

// Refund は決済を全額返金する
func (c *MercadoPagoClient) Refund(ctx context.Context, paymentID string) error {
	path := "/v1/payments/" + url.PathEscape(paymentID) + "/refunds"
	return c.do(ctx, http.MethodPost, path, "refund-"+paymentID, struct{}{}, nil)
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path, idempotencyKey string, in, out any) error {
	var reader io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("リクエストのエンコードに失敗: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrPaymentProcessing, "決済ゲートウェイの呼び出しに失敗しました")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status=%d body=%s", payment.ErrGatewayFailure, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", payment.ErrUnexpectedReply, err)
	}
	return nil
}

// formatAmount は最小通貨単位を小数2桁の金額に変換する
func formatAmount(minor int64) json.Number {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return json.Number(fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100))
}

func withOrderID(base, orderID string) string {
	if base == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "order_id=" + url.QueryEscape(orderID)
}

var _ payment.Gateway = (*MercadoPagoClient)(nil)
