package model

// UploadFile is a request-scoped temp copy of an uploaded multipart file.
type UploadFile struct {
	Path         string
	MimeType     string
	OriginalName string
	Size         int64
}
