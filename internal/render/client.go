package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ContractData is the structured input the template collaborator turns
// into contract markup.
type ContractData struct {
	TemplateType     string                `json:"template_type"`
	WorkTitle        string                `json:"work_title"`
	CollaboratorName string                `json:"collaborator_name"`
	LegalName        string                `json:"legal_name"`
	RoleInSong       string                `json:"role_in_song"`
	PublishingShare  *float64              `json:"publishing_share,omitempty"`
	MasterShare      *float64              `json:"master_share,omitempty"`
	LabelMasterShare float64               `json:"label_master_share"`
	PublisherSplits  []PublisherSplitEntry `json:"publisher_splits"`
}

type PublisherSplitEntry struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Client speaks to the external templating + PDF rendering collaborators.
type Client interface {
	RenderHTML(ctx context.Context, data ContractData) (string, error)
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

type RenderClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRenderClient(baseURL string) *RenderClient {
	return &RenderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type htmlResponse struct {
	HTML string `json:"html"`
}

// RenderHTML feeds structured contract data through the template service
// and returns the produced markup.
func (c *RenderClient) RenderHTML(ctx context.Context, data ContractData) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/internal/templates/%s/render", c.baseURL, data.TemplateType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf(
			"template server error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var payload htmlResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	return payload.HTML, nil
}

type pdfRequest struct {
	HTML      string `json:"html"`
	PageSize  string `json:"page_size"`
	Landscape bool   `json:"landscape"`
}

type pdfResponse struct {
	PDF string `json:"pdf"` // base64
}

// RenderPDF converts markup to a fixed-size paginated document.
func (c *RenderClient) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	body, err := json.Marshal(pdfRequest{HTML: html, PageSize: "A4"})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/internal/pdf"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"pdf render error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var payload pdfResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return base64.StdEncoding.DecodeString(payload.PDF)
}
