// Package archive writes the collected files into a single ZIP archive on a
// scratch filesystem.
//
// # Scratch storage
//
// Scratch reserves a fixed capacity up front, since the final archive size
// is unknown when a run starts, and writes the archive to one scratch entry:
//
//	scratch := archive.NewScratch(afero.NewOsFs(), os.TempDir(), "kona.zip")
//	w, err := scratch.Open(ctx, 4<<30)
//
// # Writing
//
// Entries are stored without compression. Add reports write progress as
// (loaded, total) byte counts:
//
//	err = w.Add(ctx, "notes.pdf", data, func(loaded, total int64) {
//	    fmt.Printf("%d/%d\n", loaded, total)
//	})
//	blob, err := w.Close()
//
// A writer that is abandoned after a failure must be aborted, which removes
// the scratch entry without finalizing it.
//
// # Errors
//
// Storage failures are returned as *StorageError carrying one of the codes
// QuotaExceeded, NotFound, Security, InvalidModification, InvalidState or
// Unknown. Failures of the ZIP encoder itself are *ArchiveError.
package archive
