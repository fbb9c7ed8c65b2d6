// Package ratel implements an embeddable expression language with exact
// rational arithmetic.
//
// The syntax is intended to be close to math you'd write in your notes:
// "2x" multiplies, "3 + 4 * 2" respects precedence, "{1, 2, 3} * 2" maps
// over the vector, and "100 meters in feet" converts units. Numbers are
// exact rationals by default, so "1/3 + 1/6" is exactly "1/2"; arithmetic
// falls back to IEEE doubles only when a transcendental function or
// scientific notation forces it.
//
// Expressions compile once into an immutable Program and evaluate against a
// mutable Context holding variables and user-defined functions, so one
// program can run for many inputs and many programs can share one set of
// definitions. Differentiate and Integrate rewrite parsed trees
// symbolically, with explicit errors for the patterns they have no rule for.
package ratel
