package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	config "github.com/anjiri1684/liquidity/configs"
	"go.uber.org/zap"
)

const (
	tokenTimeout = 10 * time.Second
	pushTimeout  = 15 * time.Second

	// refresh a little before Daraja expires the token
	tokenExpirySlack = 60 * time.Second
)

var ErrInvalidPhone = errors.New("invalid M-Pesa phone number format")

type StkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type StkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// MpesaClient talks to the Daraja STK push API. Calls are synchronous and never retried.
type MpesaClient struct {
	cfg        config.MpesaConfig
	tokens     TokenCache
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time
	fetchMu    sync.Mutex
}

func NewMpesaClient(cfg config.MpesaConfig, tokens TokenCache, log *zap.Logger) *MpesaClient {
	return &MpesaClient{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: &http.Client{},
		log:        log,
		now:        time.Now,
	}
}

var nonNumericRegex = regexp.MustCompile(`[^0-9]`)

// SanitizeMpesaNumber normalises Kenyan mobile numbers to the 2547XXXXXXXX / 2541XXXXXXXX form.
func SanitizeMpesaNumber(phone string) (string, error) {
	sanitized := nonNumericRegex.ReplaceAllString(phone, "")

	if (strings.HasPrefix(sanitized, "07") || strings.HasPrefix(sanitized, "01")) && len(sanitized) == 10 {
		return "254" + sanitized[1:], nil
	}
	if (strings.HasPrefix(sanitized, "7") || strings.HasPrefix(sanitized, "1")) && len(sanitized) == 9 {
		return "254" + sanitized, nil
	}
	if (strings.HasPrefix(sanitized, "2547") || strings.HasPrefix(sanitized, "2541")) && len(sanitized) == 12 {
		return sanitized, nil
	}

	return "", ErrInvalidPhone
}

// STKPassword is base64(shortcode + passkey + timestamp) as Daraja expects.
func STKPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

func (c *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(ctx); ok {
		return token, nil
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	if token, ok := c.tokens.Get(ctx); ok {
		return token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.log.Error("M-Pesa token API error", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return "", fmt.Errorf("M-Pesa token API returned non-200 status: %d", resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("M-Pesa token response missing access_token")
	}

	ttl := time.Hour
	if secs, err := tokenResp.ExpiresIn.Int64(); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	if ttl > tokenExpirySlack {
		ttl -= tokenExpirySlack
	}
	c.tokens.Set(ctx, tokenResp.AccessToken, ttl)

	c.log.Info("fetched new M-Pesa access token")
	return tokenResp.AccessToken, nil
}

// STKPush asks the provider to prompt phone for amount KES. The password and
// timestamp are derived at call time.
func (c *MpesaClient) STKPush(ctx context.Context, phone string, amount int64, accountRef string) (*StkPushResponse, error) {
	sanitizedPhone, err := SanitizeMpesaNumber(phone)
	if err != nil {
		return nil, err
	}

	accessToken, err := c.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get M-Pesa access token: %w", err)
	}

	timestamp := c.now().Format("20060102150405")
	payload := StkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          STKPassword(c.cfg.ShortCode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            sanitizedPhone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       sanitizedPhone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "Payment via STK",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal STK payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create STK request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send STK request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read STK response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("M-Pesa STK push API error", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return nil, fmt.Errorf("M-Pesa STK push returned non-200 status: %d", resp.StatusCode)
	}

	var stkResponse StkPushResponse
	if err := json.Unmarshal(respBody, &stkResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal STK response: %w", err)
	}
	if stkResponse.ResponseCode != "0" {
		return nil, fmt.Errorf("M-Pesa STK push failed: %s", stkResponse.ResponseDescription)
	}

	c.log.Info("STK push initiated",
		zap.String("checkout_request_id", stkResponse.CheckoutRequestID),
		zap.String("account_reference", accountRef))
	return &stkResponse, nil
}
