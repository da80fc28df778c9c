package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 12 * time.Second

// ChargeStatusSuccess 主动核验成功状态
const ChargeStatusSuccess = "success"

var (
	ErrConfigInvalid    = errors.New("gateway config invalid")
	ErrRequestFailed    = errors.New("gateway request failed")
	ErrSignatureInvalid = errors.New("gateway signature invalid")
	ErrPayloadInvalid   = errors.New("gateway payload invalid")
	ErrReferenceInvalid = errors.New("gateway reference invalid")
)

// SignatureHeader 回调签名头
const SignatureHeader = "X-Provider-Signature"

const referencePrefix = "ORDER"

// EventChargeSuccess 支付成功事件
const EventChargeSuccess = "charge.success"

// Config 支付网关配置。
type Config struct {
	SecretKey     string `json:"secret_key"`
	WebhookSecret string `json:"webhook_secret"`
	APIBaseURL    string `json:"api_base_url"`
}

// WebhookEvent 网关回调解析结果。
type WebhookEvent struct {
	EventID   string
	EventType string
	Reference string
	Amount    string
	Currency  string
	PaidAt    *time.Time
	Raw       map[string]interface{}
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        string          `json:"id"`
		Reference string          `json:"reference"`
		Amount    json.Number     `json:"amount"`
		Currency  string          `json:"currency"`
		PaidAt    json.RawMessage `json:"paid_at"`
	} `json:"data"`
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	return nil
}

// ComputeSignature 计算回调体签名（HMAC-SHA512，十六进制小写）。
func ComputeSignature(secret string, body []byte) string {
	h := hmac.New(sha512.New, []byte(secret))
	_, _ = h.Write(body)
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

// VerifySignature 用原始请求体校验签名，任何失败都视为签名非法。
func VerifySignature(secret, signature string, body []byte) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	provided := strings.ToLower(strings.TrimSpace(signature))
	if provided == "" {
		return fmt.Errorf("%w: %s is required", ErrSignatureInvalid, SignatureHeader)
	}
	expected := ComputeSignature(secret, body)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}
	return nil
}

// VerifyAndParseWebhook 校验签名并解析回调事件。
func VerifyAndParseWebhook(cfg *Config, headers map[string]string, body []byte) (*WebhookEvent, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrPayloadInvalid)
	}
	if err := VerifySignature(cfg.WebhookSecret, getHeaderValue(headers, SignatureHeader), body); err != nil {
		return nil, err
	}

	var payload webhookPayload
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode body failed", ErrPayloadInvalid)
	}
	eventType := strings.TrimSpace(payload.Event)
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrPayloadInvalid)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode body failed", ErrPayloadInvalid)
	}

	event := &WebhookEvent{
		EventID:   strings.TrimSpace(payload.Data.ID),
		EventType: eventType,
		Reference: strings.TrimSpace(payload.Data.Reference),
		Amount:    strings.TrimSpace(payload.Data.Amount.String()),
		Currency:  strings.ToUpper(strings.TrimSpace(payload.Data.Currency)),
		Raw:       raw,
	}
	if paidAt := parsePaidAt(payload.Data.PaidAt); paidAt != nil {
		event.PaidAt = paidAt
	}
	if event.EventType == EventChargeSuccess && event.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", ErrPayloadInvalid)
	}
	return event, nil
}

// QueryResult 主动核验返回。
type QueryResult struct {
	Reference string
	Status    string
	Amount    string
	Currency  string
	PaidAt    *time.Time
	Raw       map[string]interface{}
}

// QueryCharge 按参考号向网关核验支付状态。
func QueryCharge(ctx context.Context, cfg *Config, reference string) (*QueryResult, error) {
	if cfg == nil || strings.TrimSpace(cfg.SecretKey) == "" || strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("%w: secret_key and api_base_url are required", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrReferenceInvalid)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/") + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(cfg.SecretKey))

	resp, err := (&http.Client{Timeout: defaultTimeout}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrPayloadInvalid)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: verify status %d", ErrPayloadInvalid, resp.StatusCode)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrPayloadInvalid)
	}
	data, _ := raw["data"].(map[string]interface{})
	result := &QueryResult{
		Reference: readString(data, "reference"),
		Status:    strings.ToLower(readString(data, "status")),
		Amount:    readString(data, "amount"),
		Currency:  strings.ToUpper(readString(data, "currency")),
		Raw:       raw,
	}
	if result.Reference == "" {
		result.Reference = reference
	}
	if paidAtRaw := readString(data, "paid_at"); paidAtRaw != "" {
		if t, err := time.Parse(time.RFC3339, paidAtRaw); err == nil {
			result.PaidAt = &t
		}
	}
	return result, nil
}

// BuildReference 生成支付参考号，格式 ORDER-{订单ID}-{毫秒时间戳}-{随机后缀}。
func BuildReference(orderID uint, now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	suffix := strconv.FormatInt(rand.Int63n(1_000_000_000), 36)
	return fmt.Sprintf("%s-%d-%d-%s", referencePrefix, orderID, now.UnixMilli(), suffix)
}

// ParseReference 从支付参考号中解析订单ID。
func ParseReference(reference string) (uint, error) {
	parts := strings.Split(strings.TrimSpace(reference), "-")
	if len(parts) < 4 || parts[0] != referencePrefix {
		return 0, fmt.Errorf("%w: %q", ErrReferenceInvalid, reference)
	}
	orderID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || orderID == 0 {
		return 0, fmt.Errorf("%w: %q", ErrReferenceInvalid, reference)
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrReferenceInvalid, reference)
	}
	return uint(orderID), nil
}

func parsePaidAt(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(asString)); err == nil {
			return &t
		}
		return nil
	}
	var asUnix int64
	if err := json.Unmarshal(raw, &asUnix); err == nil && asUnix > 0 {
		t := time.Unix(asUnix, 0)
		return &t
	}
	return nil
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil || strings.TrimSpace(key) == "" {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		return strings.TrimSpace(strconv.FormatFloat(typed, 'f', -1, 64))
	case int64:
		return strings.TrimSpace(strconv.FormatInt(typed, 10))
	case int:
		return strings.TrimSpace(strconv.Itoa(typed))
	default:
		return ""
	}
}

func getHeaderValue(headers map[string]string, key string) string {
	if len(headers) == 0 || strings.TrimSpace(key) == "" {
		return ""
	}
	for h, value := range headers {
		if strings.EqualFold(strings.TrimSpace(h), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
