// Package maven talks to a Maven artifact repository.
//
// It covers the four leaf concerns of the mirror pipeline: parsing compact
// coordinate strings, downloading binary artifacts cache-first, fetching POM
// descriptors, and extracting policy-selected dependency coordinates from
// them. The [Client] implements the fetcher side; the resolution engine in
// package mirror drives it.
//
// POM parsing is deliberately permissive: element names are matched
// case-insensitively, dependency records missing a group, artifact, or
// version are skipped silently, and unknown structure is ignored. A broken
// record never fails a fetch.
package maven
