package maven

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// ExtractDependencies scans a raw POM document and returns the compact
// coordinate strings ("group:artifact:version") of every dependency record
// that matches the variant policy.
//
// The scan is tolerant by design. It walks the token stream rather than
// unmarshaling a schema: element names match case-insensitively, records
// missing any of group, artifact, or version are skipped, and surrounding
// structure (parent sections, properties, dependencyManagement, exclusions)
// is ignored. A document with no usable records yields an empty list, never
// an error.
func ExtractDependencies(pom []byte, policy Policy) []string {
	dec := xml.NewDecoder(bytes.NewReader(pom))
	dec.Strict = false

	var deps []string
	seen := make(map[string]bool)

	for {
		tok, err := dec.Token()
		if err != nil {
			// EOF or a malformed tail; everything scanned so far stands.
			return deps
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "dependency") {
			continue
		}

		group, artifact, version := scanRecord(dec)
		if artifact == "" || !policy.Matches(artifact) {
			continue
		}
		if group == "" || version == "" {
			continue
		}

		coord := group + ":" + artifact + ":" + version
		if !seen[coord] {
			seen[coord] = true
			deps = append(deps, coord)
		}
	}
}

// scanRecord consumes tokens until the open dependency element closes,
// capturing the first groupId, artifactId, and version text encountered at
// any depth inside it.
func scanRecord(dec *xml.Decoder) (group, artifact, version string) {
	depth := 1
	var field *string

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			field = nil
			switch {
			case group == "" && strings.EqualFold(t.Name.Local, "groupId"):
				field = &group
			case artifact == "" && strings.EqualFold(t.Name.Local, "artifactId"):
				field = &artifact
			case version == "" && strings.EqualFold(t.Name.Local, "version"):
				field = &version
			}
		case xml.EndElement:
			depth--
			field = nil
		case xml.CharData:
			if field != nil {
				*field += strings.TrimSpace(string(t))
			}
		}
	}
	return
}
