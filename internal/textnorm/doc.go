// Package textnorm folds free text from transcriptions and inventory labels into comparable keys.
//
// Folding lowercases with Unicode case folding, strips diacritics ("après-demain" -> "apres-demain"),
// trims and collapses whitespace. Key additionally folds simple plurals word by word so that
// "Hay Bales" and "hay bale" compare equal.
package textnorm
