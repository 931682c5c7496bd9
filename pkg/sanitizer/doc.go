// Package sanitizer normalizes user-supplied values before they reach
// validation, cache keys or the backend.
//
// All functions are idempotent and never fail: invalid input collapses to an
// empty string or an empty slice.
//
// Normalization includes:
//   - Tags (styles, levels, languages): lowercase, words joined by '-', "Yin Yoga" becomes "yin-yoga"
//   - Tag slices: normalized, deduplicated, empty values dropped, order kept
//   - Free text: whitespace collapsed and trimmed
//   - Phone numbers: E.164, national numbers read as Swiss
package sanitizer
