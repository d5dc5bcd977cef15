package index

import (
	"strings"

	"github.com/GPTNLP/AURA/internal/util"
	"github.com/GPTNLP/AURA/pkg/ai"
)

// Entity and Relationship mirror the wire records the extraction prompt
// asks the model to emit.
type Entity struct {
	Name        string
	Type        string
	Description string
}

type Relationship struct {
	Source      string
	Target      string
	Description string
	Keywords    string
}

// Extraction is the parsed result of one extraction completion.
type Extraction struct {
	Entities      []Entity
	Relationships []Relationship
}

// ParseExtraction parses the delimited record list the extraction prompt
// requests:
//
//	("entity"|NAME|TYPE|DESCRIPTION)
//	("relationship"|SOURCE|TARGET|DESCRIPTION|KEYWORDS)
//
// separated by "##". The parser is deliberately tolerant: stray
// whitespace, missing parentheses or quotes are accepted, and records that
// do not fit either variant are skipped rather than failing the chunk.
func ParseExtraction(raw string) Extraction {
	var out Extraction

	for _, record := range strings.Split(raw, ai.RecordDelimiter) {
		record = strings.TrimSpace(record)
		record = strings.TrimPrefix(record, "(")
		record = strings.TrimSuffix(record, ")")
		if record == "" {
			continue
		}

		fields := strings.Split(record, "|")
		for i, f := range fields {
			fields[i] = util.CollapseWhitespace(strings.Trim(strings.TrimSpace(f), `"'`))
		}

		switch strings.ToLower(fields[0]) {
		case "entity":
			if len(fields) < 4 || fields[1] == "" {
				continue
			}
			out.Entities = append(out.Entities, Entity{
				Name:        fields[1],
				Type:        strings.ToLower(fields[2]),
				Description: strings.Join(fields[3:], " "),
			})
		case "relationship":
			if len(fields) < 4 || fields[1] == "" || fields[2] == "" {
				continue
			}
			rel := Relationship{
				Source:      fields[1],
				Target:      fields[2],
				Description: fields[3],
			}
			if len(fields) > 4 {
				rel.Keywords = strings.Join(fields[4:], ", ")
			}
			out.Relationships = append(out.Relationships, rel)
		}
	}
	return out
}
