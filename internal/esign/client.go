package esign

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the surface the contract service depends on, so tests can
// substitute a fake provider.
type Client interface {
	SendDocument(ctx context.Context, req SendDocumentRequest) (string, error)
	GetDocumentStatus(ctx context.Context, docID string) (*DocumentStatus, error)
	DownloadCompletedPDF(ctx context.Context, docID string) ([]byte, error)
}

type SignWellClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewSignWellClient(baseURL, apiKey string) *SignWellClient {
	return &SignWellClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SendDocumentRequest struct {
	Name      string
	PDF       []byte
	Recipient Recipient
}

// Signer mirrors the provider's per-recipient signing record.
type Signer struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

type DocumentStatus struct {
	// Status is normalized to pending | signed | declined.
	Status    string
	RawStatus string
	SignedAt  *time.Time
	Signers   []Signer
}

type createDocumentRequest struct {
	Name       string          `json:"name"`
	Files      []documentFile  `json:"files"`
	Recipients []wireRecipient `json:"recipients"`
	EmbeddedSigning bool       `json:"embedded_signing"`
}

type documentFile struct {
	Name       string `json:"name"`
	FileBase64 string `json:"file_base64"`
}

type wireRecipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type documentResponse struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	CompletedAt *string      `json:"completed_at"`
	Recipients  []wireSigner `json:"recipients"`
}

type wireSigner struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// SendDocument creates and dispatches a document for signature, returning
// the provider document id.
func (c *SignWellClient) SendDocument(ctx context.Context, req SendDocumentRequest) (string, error) {
	payload := createDocumentRequest{
		Name: req.Name,
		Files: []documentFile{
			{
				Name:       req.Name + ".pdf",
				FileBase64: base64.StdEncoding.EncodeToString(req.PDF),
			},
		},
		Recipients: []wireRecipient{
			{ID: "1", Name: req.Recipient.Name, Email: req.Recipient.Email},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/documents",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf(
			"esign provider send error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var doc documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", err
	}
	if doc.ID == "" {
		return "", fmt.Errorf("esign provider returned no document id")
	}

	return doc.ID, nil
}

func (c *SignWellClient) GetDocumentStatus(ctx context.Context, docID string) (*DocumentStatus, error) {
	url := fmt.Sprintf("%s/documents/%s", c.baseURL, docID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"esign provider status error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var doc documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}

	status := &DocumentStatus{
		Status:    NormalizeStatus(doc.Status),
		RawStatus: doc.Status,
	}
	if doc.CompletedAt != nil {
		if ts, err := time.Parse(time.RFC3339, *doc.CompletedAt); err == nil {
			status.SignedAt = &ts
		}
	}
	for _, s := range doc.Recipients {
		status.Signers = append(status.Signers, Signer(s))
	}

	return status, nil
}

func (c *SignWellClient) DownloadCompletedPDF(ctx context.Context, docID string) ([]byte, error) {
	url := fmt.Sprintf("%s/documents/%s/completed_pdf", c.baseURL, docID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"esign provider download error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return io.ReadAll(resp.Body)
}

// NormalizeStatus folds the provider's document statuses into the three
// states the contract lifecycle tracks.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "signed":
		return "signed"
	case "declined", "rejected":
		return "declined"
	default:
		return "pending"
	}
}
