// Package urltools resolves and rebuilds the URLs that connect assets.
//
// Every relation in the graph carries an href exactly as it appears in the
// owning asset's content. The graph needs two conversions on top of that:
//
//   - [Resolve] turns an href into an absolute URL against the base of the
//     owning asset (relative, root-relative, scheme-relative and
//     fragment-only forms are all handled).
//   - [BuildHref] goes the other way when an asset moves: given the new
//     absolute target and the [HrefType] the author originally used, it
//     produces an equivalent href so the content keeps its style.
//
// [Canonical] strips the fragment identifier. Fragments belong to the
// relation that uses them and never to the identity of the target asset.
package urltools
