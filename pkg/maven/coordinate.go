package maven

import (
	"fmt"
	"strings"

	"github.com/klibmirror/klibmirror/pkg/errors"
)

// DefaultRepository is the Maven Central base URL used when no repository
// is configured.
const DefaultRepository = "https://repo1.maven.org/maven2"

// DefaultExtension is the artifact file extension assumed when a coordinate
// omits its fourth field.
const DefaultExtension = "klib"

// Coordinate identifies a single artifact in a Maven repository.
//
// The compact string form is "group:artifact:version[:extension]", e.g.
// "org.jetbrains.kotlin:kotlin-dom-api-compat:2.3.0". Use [ParseCoordinate]
// to construct one from that form.
type Coordinate struct {
	Group     string // Dotted namespace (e.g., "org.jetbrains.kotlin")
	Artifact  string // Artifact name (e.g., "kotlin-dom-api-compat")
	Version   string // Artifact version (e.g., "2.3.0")
	Extension string // File extension, "klib" unless specified
}

// ParseCoordinate parses a compact coordinate string.
//
// It accepts 3 or 4 colon-separated fields (group, artifact, version, and an
// optional extension defaulting to [DefaultExtension]). Any other field
// count fails with a MALFORMED_COORDINATE error. The group and artifact
// fields must be safe to use as cache file name components.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return Coordinate{}, errors.New(errors.ErrCodeMalformedCoordinate, "unknown coordinate: %q", s)
	}

	c := Coordinate{
		Group:     parts[0],
		Artifact:  parts[1],
		Version:   parts[2],
		Extension: DefaultExtension,
	}
	if len(parts) == 4 {
		c.Extension = parts[3]
	}

	if err := errors.ValidateArtifactName(c.Artifact); err != nil {
		return Coordinate{}, err
	}
	if c.Group == "" || c.Version == "" {
		return Coordinate{}, errors.New(errors.ErrCodeMalformedCoordinate, "unknown coordinate: %q", s)
	}
	return c, nil
}

// String returns the full compact form, always including the extension.
func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", c.Group, c.Artifact, c.Version, c.Extension)
}

// Key returns the dedup identity "group:artifact".
//
// The version is excluded: two requested versions of the same artifact
// collapse to whichever is scheduled first within a run.
func (c Coordinate) Key() string {
	return c.Group + ":" + c.Artifact
}

// Filename returns the cache file name, "{artifact}.{extension}".
func (c Coordinate) Filename() string {
	return c.Artifact + "." + c.Extension
}

// ArtifactURL returns the binary download URL under the given repository
// base. Dots in the group become path separators.
func (c Coordinate) ArtifactURL(repository string) string {
	return c.baseURL(repository) + "." + c.Extension
}

// DescriptorURL returns the POM descriptor URL under the given repository
// base.
func (c Coordinate) DescriptorURL(repository string) string {
	return c.baseURL(repository) + ".pom"
}

func (c Coordinate) baseURL(repository string) string {
	groupPath := strings.ReplaceAll(c.Group, ".", "/")
	return fmt.Sprintf("%s/%s/%s/%s/%s-%s",
		repository, groupPath, c.Artifact, c.Version, c.Artifact, c.Version)
}
