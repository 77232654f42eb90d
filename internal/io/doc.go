// Package ioutils provides file system helpers shared by the delivery code.
//
// All functions take an afero.Fs so callers can run against the real disk
// (afero.NewOsFs) or an in-memory filesystem in tests.
//
// # Atomic Writes
//
//	err := ioutils.WriteFileAtomic(ctx, fs, "/home/me/Downloads/kona.zip", r)
//
// The data is first written to a temporary file next to the destination and
// then renamed over it, so readers never observe a half-written file.
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("notes: week 1/2.zip") // "notes_ week 1_2.zip"
package ioutils
