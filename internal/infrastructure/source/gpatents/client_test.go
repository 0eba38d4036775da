package gpatents

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

const familyPage = `<!DOCTYPE html>
<html><head><title>US10123456B2</title><script>var x = "/patent/US99999999";</script></head>
<body>
<section itemprop="claims">
  <div class="claims">
    <div class="claim" num="1"><div class="claim-text">1. A widget comprising a gear.</div></div>
    <div class="claim" num="2"><div class="claim-text">The widget of claim 1, wherein the gear is steel.</div></div>
  </div>
</section>
<h2>Cited By (2)</h2>
<table>
  <tr><td><a href="/patent/US11111111B2/en">US11111111B2</a></td></tr>
</table>
<h2>Priority Applications (1)</h2>
<ul>
  <li><a href="/patent/US9876543B1/en">US9876543B1</a></li>
  <li><a href="/patent/US10123456B2/en">self</a></li>
  <li><a href="/patent/US12345/en">too short</a></li>
</ul>
<h2>Family Cites Families (3)</h2>
<a href="/patent/US22222222/en">US22222222</a>
<h2>Also Published As</h2>
<div><span data-result="/patent/US10999999A1/en">US10999999A1</span>
<a href="/patent/US9876543B2/en">dup</a></div>
<h2>Similar Documents</h2>
<a href="/patent/US33333333/en">US33333333</a>
</body></html>`

const untaggedClaimsPage = `<html><body>
<section id="claims">What is claimed is:   1. A thing.
 2. The thing of claim 1.</section>
</body></html>`

func newDocServer(t *testing.T, pages map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var hits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path)
		mu.Unlock()
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

type memArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *memArchive) PutObject(_ context.Context, key string, _ []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return a.err
}

func TestVariants(t *testing.T) {
	c := New(Config{}, nil)
	assert.Equal(t, []string{"10123456B2", "10123456B1", "10123456A1", "10123456A", "10123456"},
		c.Variants("10123456"))

	c = New(Config{Suffixes: []string{"b2", "", "B2"}}, nil)
	assert.Equal(t, []string{"10123456B2", "10123456"}, c.Variants("10123456"))
}

func TestFetchDocument_ParsesFamilyPage(t *testing.T) {
	srv, hits := newDocServer(t, map[string]string{"/patent/US10123456B2/en": familyPage})
	archive := &memArchive{}
	c := New(Config{BaseURL: srv.URL}, nil, WithArchive(archive))

	doc, err := c.FetchDocument(context.Background(), "10123456")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "10123456B2", doc.Variant)
	assert.Equal(t, srv.URL+"/patent/US10123456B2/en", doc.URL)
	assert.Equal(t, "1. A widget comprising a gear.\n\n2. The widget of claim 1, wherein the gear is steel.", doc.ClaimsText)
	assert.Equal(t, []ptypes.Number{"9876543", "10999999"}, doc.Candidates)
	assert.Equal(t, []string{"/patent/US10123456B2/en"}, *hits)
	assert.Equal(t, []string{"documents/10123456/10123456B2.html"}, archive.keys)

	classes := map[string]family.SectionClass{}
	for _, s := range doc.Sections {
		classes[s.Header] = s.Class
	}
	assert.Equal(t, family.SectionCitation, classes["Cited By (2)"])
	assert.Equal(t, family.SectionFamily, classes["Priority Applications (1)"])
	assert.Equal(t, family.SectionCitation, classes["Family Cites Families (3)"])
	assert.Equal(t, family.SectionCitation, classes["Similar Documents"])
	assert.Equal(t, family.SectionFamily, classes["Also Published As"])
}

func TestFetchDocument_FallsThroughVariants(t *testing.T) {
	srv, hits := newDocServer(t, map[string]string{
		"/patent/US10123456B2/en": "<html><body><p>Not a patent page</p></body></html>",
		"/patent/US10123456/en":   untaggedClaimsPage,
	})
	c := New(Config{BaseURL: srv.URL}, nil)

	doc, err := c.FetchDocument(context.Background(), "10123456")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "10123456", doc.Variant)
	assert.Equal(t, "What is claimed is: 1. A thing. 2. The thing of claim 1.", doc.ClaimsText)
	assert.Empty(t, doc.Candidates)
	assert.NotNil(t, doc.Candidates)
	assert.Len(t, *hits, 5)
}

func TestFetchDocument_NoVariantWorks(t *testing.T) {
	srv, hits := newDocServer(t, map[string]string{})
	c := New(Config{BaseURL: srv.URL}, nil)

	doc, err := c.FetchDocument(context.Background(), "10123456")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Len(t, *hits, 5)
}

func TestFetchDocument_ArchiveFailureIgnored(t *testing.T) {
	srv, _ := newDocServer(t, map[string]string{"/patent/US10123456B2/en": familyPage})
	c := New(Config{BaseURL: srv.URL}, nil, WithArchive(&memArchive{err: fmt.Errorf("bucket gone")}))

	doc, err := c.FetchDocument(context.Background(), "10123456")
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestFetchDocument_ContextCancelled(t *testing.T) {
	srv, _ := newDocServer(t, map[string]string{})
	c := New(Config{BaseURL: srv.URL}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := c.FetchDocument(ctx, "10123456")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, doc)
}

func TestFetchDocument_CustomPolicy(t *testing.T) {
	srv, _ := newDocServer(t, map[string]string{"/patent/US10123456B2/en": familyPage})
	policy, err := family.NewSectionPolicy([]string{`(?i)similar`}, []string{`(?i)never-matches`})
	require.NoError(t, err)
	c := New(Config{BaseURL: srv.URL}, nil, WithPolicy(policy))

	doc, err := c.FetchDocument(context.Background(), "10123456")
	require.NoError(t, err)
	assert.Equal(t, []ptypes.Number{"33333333"}, doc.Candidates)
}

func TestExtractClaims_NumbersUnnumberedClaims(t *testing.T) {
	page := `<html><body><div itemprop="claims">
		<claim-statement>What is claimed is:</claim-statement>
		<div class="claim">A first claim.</div>
		<div class="claim">A second claim <div class="claim-text">with nested text</div>.</div>
	</div></body></html>`
	p, ok, err := parseDocument(strings.NewReader(page), "1", family.DefaultSectionPolicy())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1. A first claim.\n\n2. A second claim with nested text.", p.claims)
}

func TestExtractClaims_InlineMarkupKeepsText(t *testing.T) {
	page := `<html><body><section itemprop="claims"><div class="claims">
		<div class="claim"><div class="claim-text">1. A widget comprising a <i>gear</i>.</div></div>
		<div class="claim"><div class="claim-text">2. The widget of <claim-ref idref="CLM-00001">claim 1</claim-ref>, wherein the gear is <b>steel</b>.</div></div>
	</div></section></body></html>`
	p, ok, err := parseDocument(strings.NewReader(page), "1", family.DefaultSectionPolicy())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1. A widget comprising a gear.\n\n2. The widget of claim 1, wherein the gear is steel.", p.claims)
}

func TestLinkedNumbers_DataAttributes(t *testing.T) {
	page := `<html><body><h2>Worldwide Applications</h2>
		<div data-href="/patent/US7000001B2" data-other="/patent/US7000002">x</div>
		<div itemprop="claims"></div></body></html>`
	p, ok, err := parseDocument(strings.NewReader(page), "7000003", family.DefaultSectionPolicy())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []ptypes.Number{"7000001", "7000002"}, p.candidates)
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "documents/654321/654321B1.html", ArchiveKey("654321", "654321B1"))
}

//Personal.AI order the ending
