package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// TopicPayment は決済に関する通知
const TopicPayment = "payment"

// Notification はゲートウェイからのWebhook通知
type Notification struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
	Status string `json:"status"`
}

// IsPayment は決済の通知かを返す
func (n *Notification) IsPayment() bool {
	topic := n.Type
	if topic == "" {
		topic = n.Topic
	}
	return topic == TopicPayment
}

// PaymentID は通知対象の決済IDを返す
func (n *Notification) PaymentID() string {
	return string(n.Data.ID)
}

// ParseNotification は通知本文を解析する
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, ErrInvalidNotification
	}
	if n.IsPayment() && n.PaymentID() == "" {
		return nil, ErrInvalidNotification
	}
	return &n, nil
}

// VerifySignature は本文の HMAC-SHA256（16進）署名を検証する
func VerifySignature(secret string, body []byte, signature string) error {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, Sign(secret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign は本文の HMAC-SHA256 を返す
func Sign(secret string, body []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return m.Sum(nil)
}

// flexibleID は文字列・数値のどちらで送られてきたIDも受け付ける
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
