package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenSafetyMargin is subtracted from an OAuth2 access token's expiry
// so SendPush always has a few minutes of headroom before refreshing.
const tokenSafetyMargin = 5 * time.Minute

const fcmOAuthScope = "https://www.googleapis.com/auth/firebase.messaging"
const fcmOAuthTokenURL = "https://oauth2.googleapis.com/token"
const fcmOAuthGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// FCMConfig contains configuration for Firebase Cloud Messaging push
// notifications.
type FCMConfig struct {
	// Enabled indicates whether push notifications are enabled.
	Enabled bool

	// ProjectID is the Firebase project ID push messages are sent to.
	ProjectID string

	// ServiceAccountJSONPath is the path to the FCM service account key
	// file (the standard Google service-account JSON credential).
	ServiceAccountJSONPath string

	// Timeout is the HTTP request timeout for FCM API calls.
	Timeout time.Duration
}

// serviceAccountKey is the subset of a Google service-account JSON
// credential this notifier needs to mint its own OAuth2 access tokens.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// PushSender sends a single push notification to a single device token.
// Separated from Notifier because FCM fan-out is per-subscriber, not
// per-channel: the use-case layer loops over subscribers and calls
// SendPush once per push token.
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string) error
}

// FCMNotifier sends push notifications via the FCM v1 HTTP API,
// authenticating with a short-lived OAuth2 access token obtained via a
// signed JWT assertion (the service-account "JWT bearer" flow), cached
// until shortly before it expires.
type FCMNotifier struct {
	config      FCMConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter

	account *serviceAccountKey
	signKey interface{}

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewFCMNotifier loads the service account key at config.ServiceAccountJSONPath
// and returns a ready-to-use FCMNotifier. If the key file cannot be read or
// parsed it returns a nil notifier and the error; the caller logs it and
// leaves push disabled.
func NewFCMNotifier(config FCMConfig) (*FCMNotifier, error) {
	n := &FCMNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(10, 20), // FCM allows high sustained throughput; stay well under it
	}

	raw, err := os.ReadFile(config.ServiceAccountJSONPath)
	if err != nil {
		return nil, fmt.Errorf("read FCM service account file: %w", err)
	}

	var account serviceAccountKey
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("parse FCM service account JSON: %w", err)
	}
	if account.TokenURI == "" {
		account.TokenURI = fcmOAuthTokenURL
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse FCM service account private key: %w", err)
	}

	n.account = &account
	n.signKey = key
	return n, nil
}

// fcmMessage is the FCM v1 "send" request body for a single-recipient
// notification message (title and body, no data payload).
type fcmMessage struct {
	Message struct {
		Token        string          `json:"token"`
		Notification fcmNotification `json:"notification"`
	} `json:"message"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendPush implements PushSender.SendPush: acquire an access token
// (minting a fresh one if the cached one is near expiry), then POST a
// single-recipient message to the FCM v1 send endpoint.
func (n *FCMNotifier) SendPush(ctx context.Context, token, title, body string) error {
	if err := n.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("FCM rate limiter: %w", err)
	}

	accessToken, err := n.accessTokenFor(ctx)
	if err != nil {
		return fmt.Errorf("FCM access token: %w", err)
	}

	var payload fcmMessage
	payload.Message.Token = token
	payload.Message.Notification = fcmNotification{Title: title, Body: body}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal FCM payload: %w", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", n.config.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create FCM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute FCM request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{Message: "FCM rate limit exceeded", RetryAfter: 30 * time.Second}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("FCM client error: %s", string(respBody))}
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("FCM server error: %s", string(respBody))}
}

// accessTokenFor returns the cached access token if it has more than
// tokenSafetyMargin left on it, otherwise mints a fresh one.
func (n *FCMNotifier) accessTokenFor(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.accessToken != "" && time.Now().Before(n.expiresAt.Add(-tokenSafetyMargin)) {
		return n.accessToken, nil
	}

	token, expiresIn, err := n.fetchAccessToken(ctx)
	if err != nil {
		return "", err
	}

	n.accessToken = token
	n.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return token, nil
}

// fetchAccessToken implements the Google service-account JWT-bearer
// OAuth2 flow: sign a short-lived assertion with the service account's
// private key, exchange it for an access token.
func (n *FCMNotifier) fetchAccessToken(ctx context.Context) (string, int, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   n.account.ClientEmail,
		"scope": fcmOAuthScope,
		"aud":   n.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	assertion := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := assertion.SignedString(n.signKey)
	if err != nil {
		return "", 0, fmt.Errorf("sign FCM JWT assertion: %w", err)
	}

	form := make(map[string]string, 2)
	form["grant_type"] = fcmOAuthGrantType
	form["assertion"] = signed

	body := fmt.Sprintf("grant_type=%s&assertion=%s", form["grant_type"], form["assertion"])
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.account.TokenURI, bytes.NewReader([]byte(body)))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("execute token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", 0, fmt.Errorf("parse token response: %w", err)
	}
	return tokenResp.AccessToken, tokenResp.ExpiresIn, nil
}
