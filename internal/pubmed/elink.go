// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/snowball/pkg/types"
)

// Link names returned by elink for pubmed→pubmed neighbours.
const (
	linkRelated = "pubmed_pubmed"
	linkCitedIn = "pubmed_pubmed_citedin"
	linkRefs    = "pubmed_pubmed_refs"
)

// elinkResponse is the JSON form of an elink cmd=neighbor response.
type elinkResponse struct {
	Error    string         `json:"ERROR"`
	LinkSets []elinkLinkSet `json:"linksets"`
}

type elinkLinkSet struct {
	Error      string       `json:"ERROR"`
	IDs        []string     `json:"ids"`
	LinkSetDBs []elinkSetDB `json:"linksetdbs"`
}

type elinkSetDB struct {
	DBTo     string   `json:"dbto"`
	LinkName string   `json:"linkname"`
	Links    []string `json:"links"`
}

// parseRelated decodes an elink body into a RelatedSet for id. Link order is
// preserved; duplicates and self-links are dropped.
func parseRelated(body []byte, id types.ArticleID) (types.RelatedSet, error) {
	var resp elinkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.RelatedSet{}, fmt.Errorf("parsing elink response: %w", err)
	}
	if resp.Error != "" {
		return types.RelatedSet{}, fmt.Errorf("elink error: %s", resp.Error)
	}

	var rel types.RelatedSet
	for _, ls := range resp.LinkSets {
		if ls.Error != "" {
			return types.RelatedSet{}, fmt.Errorf("elink error: %s", ls.Error)
		}
		for _, db := range ls.LinkSetDBs {
			switch db.LinkName {
			case linkRelated:
				rel.Forward = appendLinks(rel.Forward, db.Links, id)
			case linkCitedIn:
				rel.CitedBy = appendLinks(rel.CitedBy, db.Links, id)
			case linkRefs:
				rel.References = appendLinks(rel.References, db.Links, id)
			}
		}
	}
	return rel, nil
}

func appendLinks(dst []types.ArticleID, links []string, self types.ArticleID) []types.ArticleID {
	seen := make(map[types.ArticleID]struct{}, len(dst)+len(links))
	for _, id := range dst {
		seen[id] = struct{}{}
	}
	for _, l := range links {
		id := types.NormalizeID(l)
		if id == "" || id == self {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		dst = append(dst, id)
	}
	return dst
}
