package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrTokenNotFound means the session token expired or never existed.
	ErrTokenNotFound = errors.New("opentdb: session token not found")
	// ErrTokenExhausted means every question available for the query was already served.
	ErrTokenExhausted = errors.New("opentdb: session token exhausted")
)

// OpenTDBClient fetches questions from the Open Trivia DB (no API key).
type OpenTDBClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenTDBClient(baseURL string, httpClient *http.Client) *OpenTDBClient {
	if baseURL == "" {
		baseURL = "https://opentdb.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &OpenTDBClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type OpenTDBQuestion struct {
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	Difficulty      string   `json:"difficulty"`
	Question        string   `json:"question"`
	CorrectAnswer   string   `json:"correct_answer"`
	IncorrectAnswer []string `json:"incorrect_answers"`
}

type openTDBResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []OpenTDBQuestion `json:"results"`
}

type openTDBTokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

// RequestToken opens a new session; questions fetched with it never repeat.
func (c *OpenTDBClient) RequestToken(ctx context.Context) (string, error) {
	var payload openTDBTokenResponse
	if err := c.get(ctx, "/api_token.php", url.Values{"command": {"request"}}, &payload); err != nil {
		return "", err
	}
	if payload.ResponseCode != 0 || payload.Token == "" {
		return "", fmt.Errorf("opentdb token response code %d", payload.ResponseCode)
	}
	return payload.Token, nil
}

func (c *OpenTDBClient) Fetch(ctx context.Context, amount int, difficulty, qType, token string) ([]OpenTDBQuestion, error) {
	values := url.Values{}
	values.Set("amount", fmt.Sprint(amount))
	if difficulty != "" {
		values.Set("difficulty", difficulty)
	}
	if qType != "" {
		values.Set("type", qType)
	}
	if token != "" {
		values.Set("token", token)
	}

	var payload openTDBResponse
	if err := c.get(ctx, "/api.php", values, &payload); err != nil {
		return nil, err
	}
	switch payload.ResponseCode {
	case 0:
		return payload.Results, nil
	case 3:
		return nil, ErrTokenNotFound
	case 4:
		return nil, ErrTokenExhausted
	default:
		return nil, fmt.Errorf("opentdb response code %d", payload.ResponseCode)
	}
}

func (c *OpenTDBClient) get(ctx context.Context, path string, values url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s?%s", c.baseURL, path, values.Encode()), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("opentdb non-200: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
