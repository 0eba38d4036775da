package client

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Record is one member of the family.
type Record struct {
	ID                    string    `json:"id"`
	PatentNumber          string    `json:"patent_number"`
	Title                 string    `json:"title"`
	Date                  string    `json:"date"`
	PatentType            string    `json:"patent_type,omitempty"`
	Relationship          string    `json:"relationship"`
	AllClaimsText         string    `json:"all_claims_text"`
	FirstIndependentClaim string    `json:"first_independent_claim"`
	InventiveConcept      string    `json:"inventive_concept"`
	OverlapsWith          []string  `json:"overlaps_with"`
	OverlapExplanation    string    `json:"overlap_explanation"`
	Differentiation       string    `json:"differentiation"`
	DocumentURL           string    `json:"document_url"`
	Stage                 string    `json:"stage"`
	FailedAt              string    `json:"failed_at,omitempty"`
	LastError             *string   `json:"last_error"`
	Founding              bool      `json:"founding"`
	AddedAt               time.Time `json:"added_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Family is the stored collection.
type Family struct {
	Records   []Record  `json:"records"`
	Analyzed  bool      `json:"analyzed"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddResult is the answer to Add.  Added is false when the patent was
// already in the family.
type AddResult struct {
	Record     Record   `json:"record"`
	Added      bool     `json:"added"`
	Candidates []string `json:"candidates"`
	Degraded   bool     `json:"degraded"`
}

// MemberPatch carries the fields to change; nil fields are left alone.
type MemberPatch struct {
	Title                 *string  `json:"title,omitempty"`
	Date                  *string  `json:"date,omitempty"`
	Relationship          *string  `json:"relationship,omitempty"`
	FirstIndependentClaim *string  `json:"first_independent_claim,omitempty"`
	InventiveConcept      *string  `json:"inventive_concept,omitempty"`
	OverlapsWith          []string `json:"overlaps_with,omitempty"`
	OverlapExplanation    *string  `json:"overlap_explanation,omitempty"`
	Differentiation       *string  `json:"differentiation,omitempty"`
}

// ImportOutcome is the result for one identifier of an import.
type ImportOutcome struct {
	Identifier   string `json:"identifier"`
	Status       string `json:"status"`
	RecordID     string `json:"record_id,omitempty"`
	PatentNumber string `json:"patent_number,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ImportReport summarizes a finished import.
type ImportReport struct {
	JobID      string          `json:"job_id"`
	Total      int             `json:"total"`
	Added      int             `json:"added"`
	Duplicates int             `json:"duplicates"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	Cancelled  bool            `json:"cancelled"`
	Outcomes   []ImportOutcome `json:"outcomes"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// ImportJob is the answer to an async import.
type ImportJob struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// OverlapEntry is one record's result of a family analysis.
type OverlapEntry struct {
	PatentNumber       string   `json:"patentNumber"`
	OverlapsWith       []string `json:"overlapsWith"`
	OverlapExplanation string   `json:"overlapExplanation"`
	Differentiation    string   `json:"differentiation"`
}

// AnalysisResult is the answer to Analyze.
type AnalysisResult struct {
	Entries []OverlapEntry `json:"analysis"`
	Applied int            `json:"applied"`
	Family  *Family        `json:"family"`
}

// ElementComparison compares one claim element across two members.
type ElementComparison struct {
	Element        string `json:"element"`
	InOriginal     string `json:"inOriginal"`
	InContinuation string `json:"inContinuation"`
	Status         string `json:"status"`
}

// ClaimComparison is the model's reading of two first claims.
type ClaimComparison struct {
	ChangeType        string              `json:"changeType"`
	Summary           string              `json:"summary"`
	PreambleStatus    string              `json:"preambleStatus,omitempty"`
	ElementComparison []ElementComparison `json:"elementComparison"`
}

// RedlineSpan is one piece of a claim redline.
type RedlineSpan struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// Comparison is the answer to Compare.  Original is the earlier member.
type Comparison struct {
	Original Record           `json:"original"`
	Later    Record           `json:"later"`
	Result   *ClaimComparison `json:"comparison"`
	Redline  []RedlineSpan    `json:"redline,omitempty"`
}

// Candidates is the answer to Candidates: what acquisition found for a
// patent without storing it.
type Candidates struct {
	PatentNumber string   `json:"patent_number"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	PatentType   string   `json:"patent_type"`
	ClaimsSource string   `json:"claims_source"`
	DocumentURL  string   `json:"document_url"`
	Candidates   []string `json:"candidates"`
	Degraded     bool     `json:"degraded"`
}

// FamilyClient wraps the /api/v1/family endpoints.
type FamilyClient struct {
	client *Client
}

const familyBase = "/api/v1/family"

// List returns the stored family.
func (f *FamilyClient) List(ctx context.Context) (*Family, error) {
	var out Family
	if err := f.client.get(ctx, familyBase, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one member by record id or patent number.
func (f *FamilyClient) Get(ctx context.Context, ref string) (*Record, error) {
	var out Record
	if err := f.client.get(ctx, familyBase+"/members/"+url.PathEscape(ref), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Add acquires and enriches identifier.
func (f *FamilyClient) Add(ctx context.Context, identifier string) (*AddResult, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, ErrInvalidArgument
	}
	var out AddResult
	if err := f.client.post(ctx, familyBase+"/members", map[string]string{"identifier": identifier}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update merges patch into the member with the given record id.
func (f *FamilyClient) Update(ctx context.Context, id string, patch MemberPatch) (*Record, error) {
	var out Record
	if err := f.client.patch(ctx, familyBase+"/members/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes a member by record id and returns it.
func (f *FamilyClient) Remove(ctx context.Context, id string) (*Record, error) {
	var out Record
	if err := f.client.delete(ctx, familyBase+"/members/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Retry re-runs the failed stage of an errored member.
func (f *FamilyClient) Retry(ctx context.Context, id string) (*Record, error) {
	var out Record
	if err := f.client.post(ctx, familyBase+"/members/"+url.PathEscape(id)+"/retry", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clear empties the family.
func (f *FamilyClient) Clear(ctx context.Context) error {
	return f.client.delete(ctx, familyBase, nil)
}

// Import adds identifiers one by one and waits for the report.
func (f *FamilyClient) Import(ctx context.Context, identifiers []string) (*ImportReport, error) {
	if len(identifiers) == 0 {
		return nil, ErrInvalidArgument
	}
	var out ImportReport
	body := map[string]interface{}{"identifiers": identifiers}
	if err := f.client.post(ctx, familyBase+"/import", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportAsync queues an import and returns its job id at once.
func (f *FamilyClient) ImportAsync(ctx context.Context, identifiers []string) (*ImportJob, error) {
	if len(identifiers) == 0 {
		return nil, ErrInvalidArgument
	}
	var out ImportJob
	body := map[string]interface{}{"identifiers": identifiers, "async": true}
	if err := f.client.post(ctx, familyBase+"/import", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportReport fetches the report of a finished job.  Running jobs are not
// found yet.
func (f *FamilyClient) ImportReport(ctx context.Context, jobID string) (*ImportReport, error) {
	var out ImportReport
	if err := f.client.get(ctx, familyBase+"/import/"+url.PathEscape(jobID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze runs the overlap analysis over the whole family.
func (f *FamilyClient) Analyze(ctx context.Context) (*AnalysisResult, error) {
	var out AnalysisResult
	if err := f.client.post(ctx, familyBase+"/analyze", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare compares the first claims of two members, each given by record id
// or patent number.
func (f *FamilyClient) Compare(ctx context.Context, a, b string) (*Comparison, error) {
	var out Comparison
	if err := f.client.post(ctx, familyBase+"/compare", map[string]string{"a": a, "b": b}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Candidates acquires number without adding it.
func (f *FamilyClient) Candidates(ctx context.Context, number string) (*Candidates, error) {
	var out Candidates
	if err := f.client.get(ctx, "/api/v1/patents/"+url.PathEscape(number)+"/candidates", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
