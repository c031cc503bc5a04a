package wikidata

import (
	"encoding/json"

	"github.com/flogvit/wikiportraits/internal/graph"
)

// Raw Action API payload types. The service returns loosely-typed JSON;
// these structs plus the convert functions below form the validating
// boundary that produces the typed graph model. Snaks the converter
// cannot classify are dropped here instead of propagating inward.

type apiResponse struct {
	Entities map[string]rawEntity `json:"entities"`
	Success  int                  `json:"success"`
	Error    *apiError            `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type rawEntity struct {
	ID           string                 `json:"id"`
	Missing      *string                `json:"missing"`
	Labels       map[string]rawTerm     `json:"labels"`
	Descriptions map[string]rawTerm     `json:"descriptions"`
	Claims       map[string][]rawClaim  `json:"claims"`
	Sitelinks    map[string]rawSitelink `json:"sitelinks"`
}

type rawTerm struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type rawSitelink struct {
	Site  string `json:"site"`
	Title string `json:"title"`
}

type rawClaim struct {
	MainSnak        rawSnak              `json:"mainsnak"`
	Qualifiers      map[string][]rawSnak `json:"qualifiers"`
	QualifiersOrder []string             `json:"qualifiers-order"`
	Rank            string               `json:"rank"`
}

type rawSnak struct {
	SnakType  string        `json:"snaktype"`
	Property  string        `json:"property"`
	DataValue *rawDataValue `json:"datavalue"`
}

type rawDataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawEntityIDValue struct {
	ID string `json:"id"`
}

type rawTimeValue struct {
	Time      string `json:"time"`
	Precision int    `json:"precision"`
}

type searchResponse struct {
	Search []rawSearchHit `json:"search"`
	Error  *apiError      `json:"error"`
}

type rawSearchHit struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// SPARQL query service payload types.

type sparqlResponse struct {
	Results sparqlResults `json:"results"`
}

type sparqlResults struct {
	Bindings []sparqlBinding `json:"bindings"`
}

type sparqlBinding struct {
	Person     sparqlValue `json:"person"`
	Label      sparqlValue `json:"personLabel"`
	Instrument sparqlValue `json:"instrumentLabel"`
	Birth      sparqlValue `json:"birth"`
	Country    sparqlValue `json:"countryLabel"`
	Image      sparqlValue `json:"image"`
	Article    sparqlValue `json:"article"`
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// convertEntity maps a raw API entity into the typed graph model.
func convertEntity(raw rawEntity) *graph.Entity {
	e := &graph.Entity{ID: raw.ID}

	if len(raw.Labels) > 0 {
		e.Labels = make(map[string]string, len(raw.Labels))
		for lang, term := range raw.Labels {
			e.Labels[lang] = term.Value
		}
	}
	if len(raw.Descriptions) > 0 {
		e.Descriptions = make(map[string]string, len(raw.Descriptions))
		for lang, term := range raw.Descriptions {
			e.Descriptions[lang] = term.Value
		}
	}
	if len(raw.Sitelinks) > 0 {
		e.Sitelinks = make(map[string]string, len(raw.Sitelinks))
		for site, link := range raw.Sitelinks {
			e.Sitelinks[site] = link.Title
		}
	}

	if len(raw.Claims) > 0 {
		e.Claims = make(map[string][]graph.Statement, len(raw.Claims))
		for prop, claims := range raw.Claims {
			for _, c := range claims {
				stmt, ok := convertClaim(prop, c)
				if !ok {
					continue
				}
				e.Claims[prop] = append(e.Claims[prop], stmt)
			}
		}
	}

	return e
}

// convertClaim maps one raw claim to a Statement. Claims whose main snak
// carries no usable value (novalue, somevalue, unsupported datatype) are
// rejected at the boundary.
func convertClaim(prop string, c rawClaim) (graph.Statement, bool) {
	value, ok := convertSnak(c.MainSnak)
	if !ok {
		return graph.Statement{}, false
	}

	stmt := graph.Statement{
		Property: prop,
		Value:    value,
		Rank:     c.Rank,
	}

	if len(c.Qualifiers) > 0 {
		stmt.Qualifiers = make(map[string][]graph.Value, len(c.Qualifiers))
		for qprop, snaks := range c.Qualifiers {
			for _, snak := range snaks {
				if v, ok := convertSnak(snak); ok {
					stmt.Qualifiers[qprop] = append(stmt.Qualifiers[qprop], v)
				}
			}
		}
	}

	return stmt, true
}

func convertSnak(s rawSnak) (graph.Value, bool) {
	if s.SnakType != "" && s.SnakType != "value" {
		return graph.Value{}, false
	}
	if s.DataValue == nil {
		return graph.Value{}, false
	}

	switch s.DataValue.Type {
	case "wikibase-entityid":
		var v rawEntityIDValue
		if err := json.Unmarshal(s.DataValue.Value, &v); err != nil || v.ID == "" {
			return graph.Value{}, false
		}
		return graph.Value{Kind: graph.ValueItem, ID: v.ID}, true
	case "time":
		var v rawTimeValue
		if err := json.Unmarshal(s.DataValue.Value, &v); err != nil || v.Time == "" {
			return graph.Value{}, false
		}
		return graph.Value{Kind: graph.ValueTime, Text: v.Time}, true
	case "string":
		var v string
		if err := json.Unmarshal(s.DataValue.Value, &v); err != nil {
			return graph.Value{}, false
		}
		return graph.Value{Kind: graph.ValueString, Text: v}, true
	default:
		return graph.Value{}, false
	}
}
