package family

import (
	"fmt"
	"time"

	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// Membership answers whether a canonical identifier is already part of the
// family.  Collection implements it; acquisition only needs this view.
type Membership interface {
	Contains(number ptypes.Number) bool
}

// ─────────────────────────────────────────────────────────────────────────────
// Collection aggregate
// ─────────────────────────────────────────────────────────────────────────────

// Collection is the family aggregate: the ordered records of one session.
// It is the unit of load and save.  Version increases on every successful
// save and is used by stores for optimistic concurrency.
type Collection struct {
	Records   []Record  `json:"records"`
	Analyzed  bool      `json:"analyzed"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	// ClearedAt changes on every Clear.  Running imports compare it to
	// notice that the family was reset under them.
	ClearedAt time.Time `json:"cleared_at,omitempty"`
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{Records: []Record{}}
}

// Clone returns a deep copy of c.
func (c *Collection) Clone() *Collection {
	out := *c
	out.Records = make([]Record, len(c.Records))
	for i, r := range c.Records {
		out.Records[i] = r.Clone()
	}
	return &out
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.Records) }

// Contains implements Membership.
func (c *Collection) Contains(number ptypes.Number) bool {
	_, ok := c.indexOfNumber(number)
	return ok
}

// FindByNumber returns a copy of the record with the given canonical number.
func (c *Collection) FindByNumber(number ptypes.Number) (Record, bool) {
	if i, ok := c.indexOfNumber(number); ok {
		return c.Records[i].Clone(), true
	}
	return Record{}, false
}

// Get returns a copy of the record with the given id.
func (c *Collection) Get(id string) (Record, bool) {
	if i, ok := c.indexOfID(id); ok {
		return c.Records[i].Clone(), true
	}
	return Record{}, false
}

// Numbers returns the canonical identifiers in collection order.
func (c *Collection) Numbers() []ptypes.Number {
	out := make([]ptypes.Number, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.PatentNumber
	}
	return out
}

// Add appends r.  A record whose canonical identifier is already present is
// rejected with PAT_002; the uniqueness key is the canonical number, never
// the raw input.  The first record added to an empty collection is marked
// Founding.  Any prior overlap analysis is invalidated.
func (c *Collection) Add(r Record) error {
	if r.PatentNumber.IsZero() {
		return errors.InvalidIdentifier("")
	}
	if c.Contains(r.PatentNumber) {
		return errors.New(errors.ErrCodePatentAlreadyExists,
			fmt.Sprintf("patent %s is already in the family", r.PatentNumber.Format()))
	}
	r.Founding = len(c.Records) == 0
	c.Records = append(c.Records, r.Clone())
	c.Analyzed = false
	return nil
}

// Replace swaps in r for the stored record with the same id.
func (c *Collection) Replace(r Record) error {
	i, ok := c.indexOfID(r.ID)
	if !ok {
		return memberNotFound(r.ID)
	}
	c.Records[i] = r.Clone()
	return nil
}

// Update merges patch into the record with the given id.
func (c *Collection) Update(id string, patch Patch) (Record, error) {
	i, ok := c.indexOfID(id)
	if !ok {
		return Record{}, memberNotFound(id)
	}
	if patch.Relationship != nil && !patch.Relationship.IsValid() {
		return Record{}, errors.InvalidParam(fmt.Sprintf("invalid relationship %q", *patch.Relationship))
	}
	patch.apply(&c.Records[i])
	return c.Records[i].Clone(), nil
}

// Remove deletes the record with the given id.  Remaining records keep their
// relationships; the overlap analysis is invalidated.
func (c *Collection) Remove(id string) (Record, error) {
	i, ok := c.indexOfID(id)
	if !ok {
		return Record{}, memberNotFound(id)
	}
	removed := c.Records[i]
	c.Records = append(c.Records[:i], c.Records[i+1:]...)
	c.Analyzed = false
	return removed, nil
}

// Clear drops every record.  Version is kept so stores can still detect
// concurrent writers.
func (c *Collection) Clear() {
	c.Records = []Record{}
	c.Analyzed = false
	c.ClearedAt = time.Now().UTC()
}

// ─────────────────────────────────────────────────────────────────────────────
// Overlap analysis
// ─────────────────────────────────────────────────────────────────────────────

// OverlapAnalysis is one per-patent entry of a family overlap analysis.
type OverlapAnalysis struct {
	PatentNumber       string   `json:"patentNumber"`
	OverlapsWith       []string `json:"overlapsWith"`
	OverlapExplanation string   `json:"overlapExplanation"`
	Differentiation    string   `json:"differentiation"`
}

// ApplyAnalysis writes overlap results onto matching records and marks the
// collection analyzed.  Entries naming unknown or unparseable numbers are
// skipped.  It returns how many records were updated.
func (c *Collection) ApplyAnalysis(entries []OverlapAnalysis) int {
	applied := 0
	for _, e := range entries {
		num, err := ptypes.Normalize(e.PatentNumber)
		if err != nil {
			continue
		}
		i, ok := c.indexOfNumber(num)
		if !ok {
			continue
		}
		overlaps := make([]ptypes.Number, 0, len(e.OverlapsWith))
		for _, raw := range e.OverlapsWith {
			if o, err := ptypes.Normalize(raw); err == nil && o != num {
				overlaps = append(overlaps, o)
			}
		}
		rec := &c.Records[i]
		rec.OverlapsWith = overlaps
		rec.OverlapExplanation = e.OverlapExplanation
		rec.Differentiation = e.Differentiation
		rec.UpdatedAt = time.Now().UTC()
		applied++
	}
	c.Analyzed = true
	return applied
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func (c *Collection) indexOfNumber(number ptypes.Number) (int, bool) {
	for i := range c.Records {
		if c.Records[i].PatentNumber == number {
			return i, true
		}
	}
	return -1, false
}

func (c *Collection) indexOfID(id string) (int, bool) {
	for i := range c.Records {
		if c.Records[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func memberNotFound(id string) error {
	return errors.New(errors.CodeFamilyMemberNotFound, "family member not found").WithDetail("record_id=" + id)
}

//Personal.AI order the ending
