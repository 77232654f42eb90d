// Package model defines the core data structures shared by the
// kona downloader packages.
//
// # Link
//
// Link describes one downloadable file discovered on a page. Its ID is the
// discovery index and stays stable for the whole run, so progress tracking
// can key on it without touching the page:
//
//	link := model.NewLink(0, "files/report.pdf", pageURL)
//	fmt.Println(link.URL) // https://example.com/course/files/report.pdf
//
// # FetchResult
//
// FetchResult carries the bytes retrieved for a Link together with the file
// name used for its archive entry:
//
//	res := model.NewFetchResult(link, data)
//	fmt.Println(res.Name) // report.pdf
//
// # Progress
//
// Entry holds the per-link progress state. The percentage is split in two
// halves: [0,50] for the download and [50,100] for the archive write.
//
//	model.FetchPercent(512, 1024)    // 25
//	model.ArchivePercent(512, 1024)  // 75
package model
