package model

// FetchResult holds the bytes retrieved for a single Link.
//
// A FetchResult is produced once per successful fetch and is owned by the
// pipeline until its data has been written to the archive.
type FetchResult struct {
	// Link is the descriptor the data was fetched for.
	Link Link

	// Name is the archive entry name, the final path segment of the URL.
	Name string

	// Data is the complete response body.
	Data []byte
}

// NewFetchResult creates a FetchResult and derives its entry name.
func NewFetchResult(link Link, data []byte) *FetchResult {
	return &FetchResult{
		Link: link,
		Name: link.FileName(),
		Data: data,
	}
}

// Size returns the number of bytes retrieved.
func (r *FetchResult) Size() int64 {
	return int64(len(r.Data))
}
