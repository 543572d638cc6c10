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

// WriteRIS writes articles as RIS journal records.
func WriteRIS(w io.Writer, articles []types.Article) error {
	bw := bufio.NewWriter(w)
	for _, a := range articles {
		if !a.HasBib() {
			continue
		}
		writeRISRecord(bw, a)
	}
	return bw.Flush()
}

func writeRISRecord(w *bufio.Writer, a types.Article) {
	b := a.Bib
	tag := func(t, value string) {
		// RIS values are single-line.
		value = strings.Join(strings.Fields(value), " ")
		if value != "" {
			fmt.Fprintf(w, "%s  - %s\n", t, value)
		}
	}

	tag("TY", "JOUR")
	tag("ID", CiteKey(a.ID))
	for _, name := range b.AuthorList() {
		n := parseAuthorName(name)
		if n.Literal != "" {
			tag("AU", n.Literal)
		} else {
			tag("AU", n.Family+", "+n.Given)
		}
	}
	tag("TI", b.Title)
	tag("JO", b.Journal)
	if y, ok := year(b.Year); ok {
		tag("PY", strconv.Itoa(y))
	}
	tag("DO", b.DOI)
	tag("AN", string(a.ID))
	for _, kw := range b.Keywords {
		tag("KW", kw)
	}
	tag("AB", b.Abstract)
	w.WriteString("ER  - \n")
}
