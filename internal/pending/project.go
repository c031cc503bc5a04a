package pending

import (
	"strings"

	"github.com/flogvit/wikiportraits/internal/roster"
)

// demonyms covers the nationalities seen in practice; anything else falls
// back to the country name itself.
var demonyms = map[string]string{
	"Germany":        "German",
	"Norway":         "Norwegian",
	"Sweden":         "Swedish",
	"Denmark":        "Danish",
	"Finland":        "Finnish",
	"United Kingdom": "British",
	"United States":  "American",
	"France":         "French",
	"Italy":          "Italian",
	"Spain":          "Spanish",
	"Netherlands":    "Dutch",
	"Poland":         "Polish",
	"Japan":          "Japanese",
	"Canada":         "Canadian",
	"Australia":      "Australian",
	"Ireland":        "Irish",
	"Iceland":        "Icelandic",
}

var roleNouns = map[string]string{
	"vocals":   "singer",
	"voice":    "singer",
	"guitar":   "guitarist",
	"bass":     "bassist",
	"drums":    "drummer",
	"piano":    "pianist",
	"keyboard": "keyboardist",
	"violin":   "violinist",
	"cello":    "cellist",
	"trumpet":  "trumpeter",
	"saxophone": "saxophonist",
}

// Performer projects a pending entity into the roster's performer shape.
// When no explicit description is supplied, one is derived from the
// nationality and primary instrument ("German guitarist"). This is a
// presentation convenience only.
func (e *Entity) Performer() roster.Performer {
	p := roster.Performer{
		LocalID:     e.LocalID,
		Name:        e.Attrs.Name,
		Description: e.Attrs.Description,
		Nationality: e.Attrs.Nationality,
		BirthDate:   e.Attrs.BirthDate,
		Provenance:  roster.ProvenancePending,
	}
	if len(e.Attrs.Instruments) > 0 {
		p.Instruments = append([]string(nil), e.Attrs.Instruments...)
	}
	if e.Attrs.Tenure != nil {
		t := *e.Attrs.Tenure
		p.Tenure = &t
	}
	if p.Description == "" {
		p.Description = deriveDescription(e.Attrs)
	}
	return p
}

func deriveDescription(attrs Attrs) string {
	var role string
	if len(attrs.Instruments) > 0 {
		primary := strings.ToLower(attrs.Instruments[0])
		if noun, ok := roleNouns[primary]; ok {
			role = noun
		} else {
			role = primary + " player"
		}
	}

	var origin string
	if attrs.Nationality != "" {
		if d, ok := demonyms[attrs.Nationality]; ok {
			origin = d
		} else {
			origin = attrs.Nationality
		}
	}

	switch {
	case origin != "" && role != "":
		return origin + " " + role
	case role != "":
		return role
	case origin != "":
		return origin + " musician"
	default:
		return ""
	}
}
