// Package token defines the data model shared by the generation engine and
// the audit tooling.
//
// A [Combination] is the ordered set of [LayerChoice] values picked for one
// token attempt, one per category in declaration order. Its [Combination.Key]
// is the identity used for uniqueness: the chosen files' full paths joined by
// [KeySeparator]. Two distinct files that happen to share a trait value are
// therefore distinct patterns.
//
// [Metadata] is the on-disk JSON schema of an emitted token. It is a stable
// contract: the check command reads it back to tally rarities and re-audit
// forbidden pairs.
package token
