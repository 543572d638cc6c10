// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cite

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/snowball/pkg/types"
)

var bibtexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
)

// WriteBibTeX writes articles as @article entries.
func WriteBibTeX(w io.Writer, articles []types.Article) error {
	bw := bufio.NewWriter(w)
	first := true
	for _, a := range articles {
		if !a.HasBib() {
			continue
		}
		if !first {
			bw.WriteString("\n")
		}
		first = false
		writeBibTeXEntry(bw, a)
	}
	return bw.Flush()
}

func writeBibTeXEntry(w *bufio.Writer, a types.Article) {
	b := a.Bib
	fmt.Fprintf(w, "@article{%s,\n", CiteKey(a.ID))

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %s = {%s},\n", name, value)
		}
	}

	var authors []string
	for _, name := range b.AuthorList() {
		authors = append(authors, bibtexName(parseAuthorName(name)))
	}
	field("author", strings.Join(authors, " and "))
	if b.Title != "" {
		// Double braces keep BibTeX styles from re-casing the title.
		field("title", "{"+bibtexEscaper.Replace(b.Title)+"}")
	}
	field("journal", bibtexEscaper.Replace(b.Journal))
	if y, ok := year(b.Year); ok {
		field("year", strconv.Itoa(y))
	}
	field("doi", b.DOI)
	field("pmid", string(a.ID))
	field("pmcid", b.PMCID)
	field("keywords", bibtexEscaper.Replace(strings.Join(b.Keywords, ", ")))
	field("abstract", bibtexEscaper.Replace(b.Abstract))
	w.WriteString("}\n")
}

func bibtexName(n CSLName) string {
	if n.Literal != "" {
		return "{" + bibtexEscaper.Replace(n.Literal) + "}"
	}
	return bibtexEscaper.Replace(n.Family) + ", " + n.Given
}
