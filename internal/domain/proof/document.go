package proof

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpggio/cairn/internal/repository"
)

// Document is the off-chain evidence document stored under a proof address.
// Its own timestamp and project_id are not trusted; the ledger supplies both.
type Document struct {
	Description string `json:"description"`
	CodeURL     string `json:"code_url"`
	OutputURL   string `json:"output_url"`
	VideoURL    string `json:"video_url,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Validate checks required fields.
func (d Document) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(d.CodeURL) == "" {
		missing = append(missing, "code_url")
	}
	if strings.TrimSpace(d.OutputURL) == "" {
		missing = append(missing, "output_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: proof document missing %s", repository.ErrMalformed, strings.Join(missing, ", "))
	}
	return nil
}

// DecodeDocument parses and validates a proof document.
func DecodeDocument(raw []byte) (Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: decoding proof document: %v", repository.ErrMalformed, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}
