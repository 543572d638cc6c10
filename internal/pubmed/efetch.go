// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/snowball/internal/provider"
	"github.com/pdiddy/snowball/pkg/types"
)

// pubmedArticleSet is the efetch response. Only the fields that feed a
// BibRecord are decoded.
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation medlineCitation `xml:"MedlineCitation"`
	PubmedData      pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID         string        `xml:"PMID"`
	Article      article       `xml:"Article"`
	KeywordLists []keywordList `xml:"KeywordList"`
}

type article struct {
	Journal      journal       `xml:"Journal"`
	ArticleTitle markupText    `xml:"ArticleTitle"`
	ELocationIDs []eLocationID `xml:"ELocationID"`
	Abstract     *abstract     `xml:"Abstract"`
	AuthorList   *authorList   `xml:"AuthorList"`
	ArticleDates []articleDate `xml:"ArticleDate"`
}

type journal struct {
	Title           string       `xml:"Title"`
	ISOAbbreviation string       `xml:"ISOAbbreviation"`
	JournalIssue    journalIssue `xml:"JournalIssue"`
}

type journalIssue struct {
	PubDate pubDate `xml:"PubDate"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	MedlineDate string `xml:"MedlineDate"`
}

type articleDate struct {
	Year string `xml:"Year"`
}

type eLocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Value   string `xml:",chardata"`
}

type abstract struct {
	Texts []abstractText `xml:"AbstractText"`
}

type abstractText struct {
	Label string
	Value markupText
}

func (t *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			t.Label = attr.Value
		}
	}
	return t.Value.UnmarshalXML(d, start)
}

type authorList struct {
	Authors []author `xml:"Author"`
}

type author struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

type keywordList struct {
	Keywords []markupText `xml:"Keyword"`
}

type pubmedData struct {
	ArticleIDs []articleID `xml:"ArticleIdList>ArticleId"`
}

type articleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// markupText collects the character data of an element and all of its
// descendants, so inline markup such as <i> or <sup> in titles and abstracts
// keeps its text.
type markupText string

func (m *markupText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*m = markupText(strings.Join(strings.Fields(b.String()), " "))
				return nil
			}
			depth--
		}
	}
}

// parseBibliography decodes an efetch body and builds the record for id.
func parseBibliography(body []byte, id types.ArticleID) (*types.BibRecord, error) {
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	for _, a := range set.Articles {
		if types.NormalizeID(a.MedlineCitation.PMID) == id {
			return a.toBibRecord(), nil
		}
	}
	if len(set.Articles) == 1 {
		return set.Articles[0].toBibRecord(), nil
	}
	return nil, fmt.Errorf("%w: no PubmedArticle for %s", provider.ErrNotFound, id)
}

func (a pubmedArticle) toBibRecord() *types.BibRecord {
	art := a.MedlineCitation.Article
	bib := &types.BibRecord{
		Authors: art.authorsString(),
		Title:   string(art.ArticleTitle),
		Journal: art.Journal.ISOAbbreviation,
		Year:    art.year(),
	}
	if bib.Journal == "" {
		bib.Journal = art.Journal.Title
	}

	for _, id := range a.PubmedData.ArticleIDs {
		switch strings.ToLower(id.IDType) {
		case "doi":
			bib.DOI = strings.TrimSpace(id.Value)
		case "pmc":
			bib.PMCID = strings.TrimSpace(id.Value)
		}
	}
	if bib.DOI == "" {
		for _, loc := range art.ELocationIDs {
			if strings.EqualFold(loc.EIdType, "doi") {
				bib.DOI = strings.TrimSpace(loc.Value)
				break
			}
		}
	}

	for _, kl := range a.MedlineCitation.KeywordLists {
		for _, kw := range kl.Keywords {
			if kw != "" {
				bib.Keywords = append(bib.Keywords, string(kw))
			}
		}
	}

	if art.Abstract != nil {
		var parts []string
		for _, t := range art.Abstract.Texts {
			text := string(t.Value)
			if text == "" {
				continue
			}
			if t.Label != "" {
				text = t.Label + ": " + text
			}
			parts = append(parts, text)
		}
		bib.Abstract = strings.Join(parts, "\n")
	}
	return bib
}

// authorsString renders authors as "LastName Initials" joined by "; ".
func (a article) authorsString() string {
	if a.AuthorList == nil {
		return ""
	}
	var names []string
	for _, au := range a.AuthorList.Authors {
		switch {
		case au.CollectiveName != "":
			names = append(names, au.CollectiveName)
		case au.LastName != "":
			name := au.LastName
			if au.Initials != "" {
				name += " " + au.Initials
			}
			names = append(names, name)
		}
	}
	return strings.Join(names, "; ")
}

func (a article) year() string {
	if y := a.Journal.JournalIssue.PubDate.Year; y != "" {
		return y
	}
	if md := a.Journal.JournalIssue.PubDate.MedlineDate; len(md) >= 4 {
		return md[:4]
	}
	for _, d := range a.ArticleDates {
		if d.Year != "" {
			return d.Year
		}
	}
	return ""
}
