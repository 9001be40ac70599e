// Package europepmc provides a search provider for the Europe PMC REST API.
//
// Europe PMC indexes PubMed, PubMed Central, preprints and patents. The search
// endpoint returns JSON in either a "lite" or a "core" (full metadata) shape.
//
// API documentation: https://europepmc.org/RestfulWebService
package europepmc

import "encoding/json"

// SearchResponse represents the top-level Europe PMC search API response.
type SearchResponse struct {
	HitCount       int        `json:"hitCount"`
	NextCursorMark string     `json:"nextCursorMark"`
	ResultList     ResultList `json:"resultList"`
}

// ResultList wraps the array of article results. Articles are decoded one by
// one so a malformed entry is skipped without losing the page.
type ResultList struct {
	Result []json.RawMessage `json:"result"`
}

// Article represents a single article in the Europe PMC response.
type Article struct {
	ID                   string          `json:"id"`
	Source               string          `json:"source"` // "MED", "PMC", "PPR"
	PMID                 string          `json:"pmid"`
	PMCID                string          `json:"pmcid"`
	DOI                  string          `json:"doi"`
	Title                string          `json:"title"`
	AuthorString         string          `json:"authorString"` // "Smith J, Doe A."
	AuthorList           *AuthorList     `json:"authorList,omitempty"`
	JournalTitle         string          `json:"journalTitle"`
	JournalInfo          *JournalInfo    `json:"journalInfo,omitempty"`
	PubYear              string          `json:"pubYear"`
	FirstPublicationDate string          `json:"firstPublicationDate"` // "2024-01-15"
	AbstractText         string          `json:"abstractText"`
	IsOpenAccess         string          `json:"isOpenAccess"` // "Y"/"N"
	InEPMC               string          `json:"inEPMC"`
	HasPDF               string          `json:"hasPDF"`
	CitedByCount         int             `json:"citedByCount"`
	KeywordList          *KeywordList    `json:"keywordList,omitempty"`
	MeshHeadingList      *MeshList       `json:"meshHeadingList,omitempty"`
	PubTypeList          *PubTypeList    `json:"pubTypeList,omitempty"`
	AffiliationString    string          `json:"affiliation"`
	License              string          `json:"license"`
	FullTextURLList      *FullTextURLSet `json:"fullTextUrlList,omitempty"`
}

// AuthorList holds structured author entries (core result type only).
type AuthorList struct {
	Author []Author `json:"author"`
}

// Author is one structured author entry.
type Author struct {
	FullName                     string                 `json:"fullName"`
	FirstName                    string                 `json:"firstName"`
	LastName                     string                 `json:"lastName"`
	Initials                     string                 `json:"initials"`
	CollectiveName               string                 `json:"collectiveName"`
	AuthorAffiliationDetailsList *AffiliationDetailList `json:"authorAffiliationDetailsList,omitempty"`
}

// AffiliationDetailList wraps an author's affiliations.
type AffiliationDetailList struct {
	AuthorAffiliation []AuthorAffiliation `json:"authorAffiliation"`
}

// AuthorAffiliation is a single affiliation string.
type AuthorAffiliation struct {
	Affiliation string `json:"affiliation"`
}

// JournalInfo carries the journal block of core results.
type JournalInfo struct {
	Journal struct {
		Title           string `json:"title"`
		ISOAbbreviation string `json:"isoabbreviation"`
	} `json:"journal"`
}

// KeywordList wraps author keywords.
type KeywordList struct {
	Keyword []string `json:"keyword"`
}

// MeshList wraps MeSH headings.
type MeshList struct {
	MeshHeading []MeshHeading `json:"meshHeading"`
}

// MeshHeading is a single MeSH descriptor.
type MeshHeading struct {
	DescriptorName string `json:"descriptorName"`
	MajorTopicYN   string `json:"majorTopic_YN"`
}

// PubTypeList wraps publication types.
type PubTypeList struct {
	PubType []string `json:"pubType"`
}

// FullTextURLSet lists known full text locations.
type FullTextURLSet struct {
	FullTextURL []FullTextURL `json:"fullTextUrl"`
}

// FullTextURL is one full text location.
type FullTextURL struct {
	Availability     string `json:"availability"`
	AvailabilityCode string `json:"availabilityCode"` // "OA", "F", "S"
	DocumentStyle    string `json:"documentStyle"`
	URL              string `json:"url"`
}
