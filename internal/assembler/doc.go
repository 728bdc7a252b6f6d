// Package assembler builds the bounded context handed to a coding assistant.
//
// A query is classified by its wording: interface nouns make it a UI query,
// edit verbs make every ranked file an edit target, and styling terms let
// style sheets become edit targets too. Edit targets are emitted whole and
// tagged editable; everything else is emitted as labelled read-only
// excerpts. Dependency and UI-component expansion pulls in neighbouring
// files as excerpts. Every emitted character counts against a budget of
// four characters per token.
package assembler
