package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rpggio/cairn/internal/repository"
)

// ResearchDomain classifies a project.
type ResearchDomain string

const (
	DomainRobotics   ResearchDomain = "Robotics"
	DomainSimulation ResearchDomain = "Simulation"
	DomainHardware   ResearchDomain = "Hardware"
)

// Tool is a known tool or service named in an output document.
type Tool string

// KnownTools lists every tool an output document may name.
var KnownTools = []Tool{
	"Python", "R", "JavaScript", "SQL", "Java", "C++", "Go", "Rust",
	"ROS", "MuJoCo", "AWS", "BitRobot",
}

// Metadata is the off-chain project registration document.
type Metadata struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	CreatedAt    time.Time      `json:"created_at"`
	Organization string         `json:"organization,omitempty"`
	InfoURL      string         `json:"url,omitempty"`
	ImageURL     string         `json:"image_url,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Domain       ResearchDomain `json:"domain,omitempty"`
	OwnerAddress string         `json:"owner_address,omitempty"`
}

type rawMetadata struct {
	Metadata
	CreatedAt string `json:"created_at"`
}

// DecodeMetadata parses and validates a metadata document.
func DecodeMetadata(raw []byte) (Metadata, error) {
	var doc rawMetadata
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Metadata{}, fmt.Errorf("%w: decoding metadata: %v", repository.ErrMalformed, err)
	}
	md := doc.Metadata
	if strings.TrimSpace(md.Title) == "" || strings.TrimSpace(md.Description) == "" {
		return Metadata{}, fmt.Errorf("%w: metadata requires title and description", repository.ErrMalformed)
	}
	switch md.Domain {
	case "", DomainRobotics, DomainSimulation, DomainHardware:
	default:
		return Metadata{}, fmt.Errorf("%w: unknown research domain %q", repository.ErrMalformed, md.Domain)
	}
	if doc.CreatedAt != "" {
		created, err := parseTimestamp(doc.CreatedAt)
		if err != nil {
			return Metadata{}, fmt.Errorf("%w: created_at: %v", repository.ErrMalformed, err)
		}
		md.CreatedAt = created
	}
	return md, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Resources groups an output's links.
type Resources struct {
	DatasetURL    string `json:"dataset_url,omitempty"`
	CodeURL       string `json:"code_url,omitempty"`
	CodeOutputURL string `json:"code_output_url,omitempty"`
}

// Tools groups an output's tooling.
type Tools struct {
	Tools      []Tool   `json:"tools,omitempty"`
	OtherTools []string `json:"other_tools,omitempty"`
}

// Output is a research output document.
type Output struct {
	PaperURL    string    `json:"paper_url,omitempty"`
	Description string    `json:"description"`
	Resources   Resources `json:"resources"`
	Tools       Tools     `json:"tools"`
}

// Validate checks the tool enum.
func (o Output) Validate() error {
	for _, tool := range o.Tools.Tools {
		if !slices.Contains(KnownTools, tool) {
			return fmt.Errorf("%w: unknown tool %q", repository.ErrMalformed, tool)
		}
	}
	return nil
}

// DecodeOutputs parses an outputs document, which holds either one output
// object or an array of them.
func DecodeOutputs(raw []byte) ([]Output, error) {
	trimmed := bytes.TrimSpace(raw)
	var outputs []Output
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &outputs); err != nil {
			return nil, fmt.Errorf("%w: decoding outputs: %v", repository.ErrMalformed, err)
		}
	default:
		var single Output
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("%w: decoding output: %v", repository.ErrMalformed, err)
		}
		outputs = []Output{single}
	}
	for _, o := range outputs {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	return outputs, nil
}
