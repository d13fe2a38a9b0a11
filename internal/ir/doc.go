// Package ir holds the declarations of a parsed scene description.
//
// The compiler produces a Description; the pipeline registers its
// geometries and materials, hands its groups to the hierarchy builder and
// its bindings to the material resolver. ir imports only xform, so every
// other internal package can depend on it.
//
// Key constraints:
//   - declaration order is preserved in every slice; it drives emission order
//   - an empty id in a Selector is a wildcard
//   - Pos fields carry "file:line:col" for diagnostics and never reach
//     canonical encodings
package ir
