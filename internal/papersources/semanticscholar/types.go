// Package semanticscholar provides a search provider for the Semantic Scholar API.
//
// Semantic Scholar is a free, AI-powered research tool for scientific literature.
// This package implements the papersources.Provider interface on top of the
// Graph API paper search endpoint.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

import "encoding/json"

// SearchResponse represents the response from the Semantic Scholar paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page of results.
	Next int `json:"next"`

	// Data holds the raw paper objects. Each one is decoded on its own so a
	// malformed entry does not discard the page.
	Data []json.RawMessage `json:"data"`
}

// PaperResult represents a single paper in the Semantic Scholar API response.
type PaperResult struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	Title           string         `json:"title"`
	Abstract        string         `json:"abstract"`
	Year            int            `json:"year"`
	PublicationDate string         `json:"publicationDate"`
	Venue           string         `json:"venue"`
	Journal         *Journal       `json:"journal,omitempty"`
	Authors         []Author       `json:"authors"`
	URL             string         `json:"url"`
	CitationCount   int            `json:"citationCount"`
	ReferenceCount  int            `json:"referenceCount"`
	IsOpenAccess    bool           `json:"isOpenAccess"`
	OpenAccessPDF   *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	ExternalIDs     *ExternalIDs   `json:"externalIds,omitempty"`

	// InfluentialCitationCount counts citations Semantic Scholar classifies as influential.
	InfluentialCitationCount int `json:"influentialCitationCount"`

	// TLDR is the machine-generated one sentence summary.
	TLDR *TLDR `json:"tldr,omitempty"`

	PublicationTypes []string `json:"publicationTypes"`
	FieldsOfStudy    []string `json:"fieldsOfStudy"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	DOI           string `json:"DOI,omitempty"`
	ArXiv         string `json:"ArXiv,omitempty"`
	PubMed        string `json:"PubMed,omitempty"`
	PubMedCentral string `json:"PubMedCentral,omitempty"`
}

// Journal contains journal-specific information.
type Journal struct {
	Name   string `json:"name,omitempty"`
	Volume string `json:"volume,omitempty"`
	Pages  string `json:"pages,omitempty"`
}

// Author represents a paper author in the Semantic Scholar API.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// OpenAccessPDF contains information about an open access PDF.
type OpenAccessPDF struct {
	// URL is the direct URL to the PDF.
	URL string `json:"url,omitempty"`

	// Status indicates the open access status (e.g., "HYBRID", "GOLD", "GREEN").
	Status string `json:"status,omitempty"`
}

// TLDR is the generated summary object.
type TLDR struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text,omitempty"`
}

// ErrorResponse represents an error response from the Semantic Scholar API.
type ErrorResponse struct {
	// Error is the error message from the API.
	Error string `json:"error,omitempty"`

	// Message is an alternative error message field.
	Message string `json:"message,omitempty"`
}
