package documents

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStorageUpload    = errors.New("failed to upload file to storage")
	ErrBusy             = errors.New("too many documents processing")
	ErrSearchQueryEmpty = errors.New("search query is required")
)

// noTextMessage is recorded as the processing error of an empty extraction.
const noTextMessage = "No text could be extracted from the document"
